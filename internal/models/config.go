package models

// Config represents the service configuration
type Config struct {
	// Server config
	Port int    `yaml:"port"`
	Host string `yaml:"host"`

	// OCR config
	OCR OCRConfig `yaml:"ocr"`

	// Auth config
	Auth AuthConfig `yaml:"auth"`
}

// OCRConfig controls the Tesseract-backed text acquisition.
type OCRConfig struct {
	Language       string `yaml:"language"`         // Tesseract language pack, e.g. "por"
	TessdataPrefix string `yaml:"tessdata_prefix"`  // Path to tessdata, empty for system default
	MinTextLength  int    `yaml:"min_text_length"`  // Embedded-text size under which a PDF counts as a scan
}

// AuthConfig holds the optional JWT authentication settings. When disabled,
// every endpoint is open.
type AuthConfig struct {
	Enabled bool       `yaml:"enabled"`
	Secret  string     `yaml:"secret"`
	Users   []AuthUser `yaml:"users"`
}

// AuthUser is a config-file credential. PasswordHash is bcrypt.
type AuthUser struct {
	Name         string `yaml:"name"`
	PasswordHash string `yaml:"password_hash"`
}
