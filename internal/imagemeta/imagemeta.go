package imagemeta

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// avatars are downscaled to at most this width before upload
const maxAvatarWidth = 512

// ShrinkAvatar decodes an uploaded avatar, downscales it when wider than
// maxAvatarWidth and re-encodes it. Returns the encoded image, its size, the
// content type and the file extension to store it under.
func ShrinkAvatar(r io.Reader) (io.Reader, int64, string, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, 0, "", "", errors.Wrap(err, "unable to decode avatar image")
	}
	if format != "jpeg" && format != "png" {
		return nil, 0, "", "", errors.Errorf("unsupported avatar image format %q", format)
	}
	if img.Bounds().Dx() > maxAvatarWidth {
		img = resize.Resize(maxAvatarWidth, 0, img, resize.Lanczos3)
	}
	buf := bytes.NewBuffer([]byte{})
	switch format {
	case "png":
		if err := png.Encode(buf, img); err != nil {
			return nil, 0, "", "", errors.Wrap(err, "unable to encode avatar png")
		}
		return buf, int64(buf.Len()), "image/png", ".png", nil
	default:
		if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 85}); err != nil {
			return nil, 0, "", "", errors.Wrap(err, "unable to encode avatar jpeg")
		}
		return buf, int64(buf.Len()), "image/jpeg", ".jpg", nil
	}
}
