package imagefile

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"plantscope/internal/services"
)

const component = "imagefile"

// ErrNotImage is the cause attached to rejected selections.
var ErrNotImage = errors.New("not an image")

// Image is a selected photo held in memory.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

// Open reads path into an Image.
func Open(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrEncoding, component, "open", fmt.Sprintf("read %s", path), err)
	}
	return FromBytes(filepath.Base(path), data), nil
}

// FromBytes wraps in-memory data, detecting its content type.
func FromBytes(name string, data []byte) *Image {
	return &Image{
		Name:        name,
		ContentType: detectContentType(name, data),
		Data:        data,
	}
}

// Validate rejects anything whose content type is not image/*.
func Validate(img *Image) error {
	if img == nil {
		return services.Wrap(services.ErrValidation, component, "validate", "no image selected", ErrNotImage)
	}
	if !strings.HasPrefix(img.ContentType, "image/") {
		return services.Wrap(services.ErrValidation, component, "validate",
			fmt.Sprintf("%s has type %s", displayName(img), img.ContentType), ErrNotImage)
	}
	return nil
}

// Base64 returns the image bytes as standard base64.
func (img *Image) Base64() (string, error) {
	if img == nil {
		return "", services.Wrap(services.ErrEncoding, component, "encode", "no image", nil)
	}
	return Encode(bytes.NewReader(img.Data))
}

// Encode reads r to EOF and returns standard base64 of the bytes.
func Encode(r io.Reader) (string, error) {
	if r == nil {
		return "", services.Wrap(services.ErrEncoding, component, "encode", "nil reader", nil)
	}
	var buf strings.Builder
	enc := base64.NewEncoder(base64.StdEncoding, &buf)
	if _, err := io.Copy(enc, r); err != nil {
		return "", services.Wrap(services.ErrEncoding, component, "encode", "read image", err)
	}
	if err := enc.Close(); err != nil {
		return "", services.Wrap(services.ErrEncoding, component, "encode", "flush", err)
	}
	return buf.String(), nil
}

// StripDataURL drops a "data:<mime>;base64," prefix when present.
func StripDataURL(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	header, payload, ok := strings.Cut(s, ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return s
	}
	return payload
}

// Decode turns base64 text, optionally wrapped in a data URL, back into an
// Image named name.
func Decode(name, encoded string) (*Image, error) {
	data, err := base64.StdEncoding.DecodeString(StripDataURL(strings.TrimSpace(encoded)))
	if err != nil {
		return nil, services.Wrap(services.ErrEncoding, component, "decode", "invalid base64", err)
	}
	return FromBytes(name, data), nil
}

func detectContentType(name string, data []byte) string {
	sniffed := http.DetectContentType(data)
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	// The sniffer does not know HEIC or AVIF; trust the extension for those
	// only when the bytes are not recognisably something else.
	if sniffed == "application/octet-stream" {
		if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
			mediaType, _, err := mime.ParseMediaType(byExt)
			if err == nil {
				return mediaType
			}
		}
		switch strings.ToLower(filepath.Ext(name)) {
		case ".heic", ".heif":
			return "image/heic"
		case ".avif":
			return "image/avif"
		}
	}
	mediaType, _, err := mime.ParseMediaType(sniffed)
	if err != nil {
		return sniffed
	}
	return mediaType
}

func displayName(img *Image) string {
	if strings.TrimSpace(img.Name) == "" {
		return "file"
	}
	return img.Name
}
