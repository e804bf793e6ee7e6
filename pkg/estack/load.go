package estack

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func (s *Sequence)Load(args ...string) error {
	for _, arg := range args {
		item, err := os.Stat(arg)

		switch {

		case err != nil:
			return fmt.Errorf("load %s: %v", arg, err)

		case item.IsDir():
			// Is a dir, recurse into contents
			contents, err := ioutil.ReadDir(arg)
			if err != nil {
				return fmt.Errorf("readdir %s: %v", arg, err)
			}
			for _, content := range contents {
				if err := s.Load(filepath.Join(arg, content.Name())); err != nil {
					return fmt.Errorf("load %s: %v", arg, err)
				}
			}

		default: // is a file, load it
			if err := s.LoadFile(arg); err != nil {
				return fmt.Errorf("loadfile %s: %v", arg, err)
			}
		}
	}

	return nil
}

// LoadFile adds a frame or applies a config, depending on the extension.
// Files we don't know about are skipped.
func (s *Sequence)LoadFile(filename string) error {
	switch strings.ToLower(filepath.Ext(filename)) {

	case ".tif", ".tiff", ".png", ".jpg", ".jpeg", ".bmp", ".hdr":
		f, err := LoadFrame(filename)
		if err != nil {
			return err
		}
		s.Add(f)

	case ".yaml":
		cfg, err := LoadConfig(filename)
		if err != nil {
			return fmt.Errorf("Loading %s as config YAML failed: %v", filename, err)
		}
		s.Config = cfg
		log.Printf("Loaded base configuration from %s\n", filename)

	default:
		if s.Config.Align.Verbosity > 0 {
			log.Printf("Skipping %s\n", filename)
		}
	}

	return nil
}

// LoadFrame decodes an image file. The EXIF timestamp is picked up if
// there is one; plenty of images don't have it, so that's not an error.
func LoadFrame(filename string) (Frame, error) {
	f := Frame{LoadFilename: filename}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".tif" || ext == ".tiff" || ext == ".jpg" || ext == ".jpeg" {
		if reader, err := os.Open(filename); err != nil {
			return f, fmt.Errorf("open+r exif '%s': %v", filename, err)
		} else {
			if ex, err := exif.Decode(reader); err == nil {
				if t, err := ex.DateTime(); err == nil {
					f.Taken = t
				}
			}
			reader.Close()
		}
	}

	// Re-open the file, now for the image data
	reader, err := os.Open(filename)
	if err != nil {
		return f, fmt.Errorf("open+r img '%s': %v", filename, err)
	}
	defer reader.Close()

	var img image.Image
	switch ext {
	case ".tif", ".tiff": img, err = tiff.Decode(reader)
	case ".bmp":          img, err = bmp.Decode(reader)
	case ".hdr":          img, err = rgbe.Decode(reader)
	default:              img, _, err = image.Decode(reader)
	}
	if err != nil {
		return f, fmt.Errorf("%s decoding '%s': %v", strings.TrimPrefix(ext, "."), filename, err)
	}

	f.OrigImage = img
	return f, nil
}
