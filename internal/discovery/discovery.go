// Package discovery locates lecture inputs on disk: the video, audio, and
// caption files of a lecture folder, videos under a tree, and exported frames.
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"autocaption/internal/services"
)

// Inputs are the files found in a lecture folder.
type Inputs struct {
	Video   string
	Audio   string
	Caption string
}

// FindInputs looks for .mp4, .m4a, and .vtt files directly inside dir. When a
// kind appears more than once the lexically last name wins. A missing video
// is ErrNotFound; audio and captions are optional.
func FindInputs(dir string) (Inputs, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Inputs{}, services.Wrap(services.ErrNotFound, "discovery", "read dir", dir, err)
	}
	var in Inputs
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || isMetadata(name) {
			continue
		}
		path := filepath.Join(dir, name)
		switch strings.ToLower(filepath.Ext(name)) {
		case ".mp4":
			in.Video = path
		case ".m4a":
			in.Audio = path
		case ".vtt":
			in.Caption = path
		}
	}
	if in.Video == "" {
		return in, services.Wrap(services.ErrNotFound, "discovery", "find inputs", fmt.Sprintf("no .mp4 video in %s", dir), nil)
	}
	return in, nil
}

// FindVideos walks root and returns files with extension ext (".mp4" when
// empty), sorted by path.
func FindVideos(root, ext string) ([]string, error) {
	if ext == "" {
		ext = ".mp4"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrPermission) && path != root {
				return nil
			}
			return err
		}
		if d.IsDir() || isMetadata(d.Name()) {
			return nil
		}
		if strings.EqualFold(filepath.Ext(d.Name()), ext) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "discovery", "walk", root, err)
	}
	sort.Strings(found)
	return found, nil
}

// FindImages lists the .jpg and .jpeg files directly inside dir in name
// order. Zero-padded frame numbers make name order match time order.
func FindImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "discovery", "read dir", dir, err)
	}
	var found []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || isMetadata(name) {
			continue
		}
		switch strings.ToLower(filepath.Ext(name)) {
		case ".jpg", ".jpeg":
			found = append(found, filepath.Join(dir, name))
		}
	}
	sort.Strings(found)
	return found, nil
}

// isMetadata matches AppleDouble sidecars such as "._lecture.mp4".
func isMetadata(name string) bool {
	return strings.HasPrefix(name, "._")
}
