package mobi

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"regexp"
	"strconv"

	_ "golang.org/x/image/bmp"
)

// noImageIndex marks a MOBI header without image records.
const noImageIndex = 0xFFFFFFFF

type imageMagic struct {
	prefix    []byte
	ext       string
	mediaType string
}

var imageMagics = []imageMagic{
	{[]byte{0xFF, 0xD8, 0xFF}, "jpg", "image/jpeg"},
	{[]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, "png", "image/png"},
	{[]byte("GIF87a"), "gif", "image/gif"},
	{[]byte("GIF89a"), "gif", "image/gif"},
	{[]byte("BM"), "bmp", "image/bmp"},
}

func sniffImage(rec []byte) (imageMagic, bool) {
	for _, m := range imageMagics {
		if bytes.HasPrefix(rec, m.prefix) {
			return m, true
		}
	}
	return imageMagic{}, false
}

// imageName is the name of the image stored at a 1-based image record index.
func imageName(recIndex int, ext string) string {
	return fmt.Sprintf("image_%05d.%s", recIndex, ext)
}

// extractImages scans the records from the first image index onwards and
// keeps every record that starts with a known image signature. The returned
// index map goes from 1-based image record index to image name.
func extractImages(records [][]byte, mh *MOBIHeader) (map[string]Image, map[int]string) {
	images := make(map[string]Image)
	byIndex := make(map[int]string)
	if mh == nil || mh.FirstImageIndex == 0 || mh.FirstImageIndex == noImageIndex {
		return images, byIndex
	}

	first := int(mh.FirstImageIndex)
	for i := first; i < len(records); i++ {
		rec := records[i]
		magic, ok := sniffImage(rec)
		if !ok {
			continue
		}
		recIndex := i - first + 1
		img := Image{
			Name:      imageName(recIndex, magic.ext),
			MediaType: magic.mediaType,
			Data:      rec,
		}
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(rec)); err == nil {
			img.Width, img.Height = cfg.Width, cfg.Height
		}
		images[img.Name] = img
		byIndex[recIndex] = img.Name
	}
	return images, byIndex
}

var recindexPattern = regexp.MustCompile(`(?i)(<img\b[^>]*?)\brecindex\s*=\s*["']?(\d+)["']?`)

// linkImages rewrites <img recindex="N"> references to src attributes
// naming the extracted image.
func linkImages(raw []byte, byIndex map[int]string) []byte {
	if len(byIndex) == 0 {
		return raw
	}
	return recindexPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		sub := recindexPattern.FindSubmatch(match)
		n, err := strconv.Atoi(string(sub[2]))
		if err != nil {
			return match
		}
		name, ok := byIndex[n]
		if !ok {
			return match
		}
		out := append([]byte{}, sub[1]...)
		return append(out, fmt.Sprintf(`src="%s"`, name)...)
	})
}
