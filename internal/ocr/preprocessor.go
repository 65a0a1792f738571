package ocr

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
)

// enhanceImage runs the image through an ImageMagick cleanup pipeline
// (grayscale, contrast, denoise, sharpen) before OCR. If ImageMagick is not
// installed or fails, the original file is used as-is.
func enhanceImage(inputPath string) string {
	magick, err := exec.LookPath("magick")
	if err != nil {
		if magick, err = exec.LookPath("convert"); err != nil {
			return inputPath
		}
	}

	outputPath := filepath.Join(os.TempDir(), fmt.Sprintf("enhanced_%d_%s", os.Getpid(), filepath.Base(inputPath)))
	args := []string{
		inputPath,
		"-resize", "2000x2000>",
		"-colorspace", "Gray",
		"-normalize",
		"-contrast-stretch", "2%x1%",
		"-despeckle",
		"-sharpen", "0x1",
		"-unsharp", "0x0.5+0.5+0",
		"-quality", "95",
		outputPath,
	}
	if err := exec.Command(magick, args...).Run(); err != nil {
		log.Printf("[OCR] ImageMagick enhancement failed, using original image: %v", err)
		return inputPath
	}
	return outputPath
}
