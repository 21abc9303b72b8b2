package uploadsvc

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/quickreceipt/core"
)

func encodedImage(t *testing.T, w, h int, format imaging.Format) []byte {
	var buf bytes.Buffer
	img := imaging.New(w, h, color.NRGBA{R: 255, A: 255})
	require.NoError(t, imaging.Encode(&buf, img, format))
	return buf.Bytes()
}

// pngHeader returns the signature and IHDR chunk of an RGB png of w x h pixels, with no pixel data.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")

	chunk := make([]byte, 4, 17)
	copy(chunk, "IHDR")
	chunk = binary.BigEndian.AppendUint32(chunk, w)
	chunk = binary.BigEndian.AppendUint32(chunk, h)
	chunk = append(chunk, 8, 2, 0, 0, 0) // 8 bits, RGB, deflate, no filter, no interlace

	_ = binary.Write(&buf, binary.BigEndian, uint32(len(chunk)-4))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestService_Save(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(core.UploadsConfig{Dir: dir, URL: "/static/uploads", MaxSize: 64 * 1024})
	nameRegex := regexp.MustCompile(`^/static/uploads/(logo|icon)_[0-9a-f]{8}\.png$`)

	tests := []struct {
		name     string
		kind     Kind
		filename string
		content  []byte
		wantErr  error
		wantSize image.Point
	}{
		{
			name:     "logo is scaled down to fit",
			kind:     KindLogo,
			filename: "Logo.JPG",
			content:  encodedImage(t, 800, 200, imaging.JPEG),
			wantSize: image.Pt(400, 100),
		},
		{
			name:     "small icon is kept as is",
			kind:     KindIcon,
			filename: "icon.gif",
			content:  encodedImage(t, 100, 100, imaging.GIF),
			wantSize: image.Pt(100, 100),
		},
		{
			name:     "extension",
			kind:     KindLogo,
			filename: "logo.svg",
			content:  []byte("<svg/>"),
			wantErr:  ErrInvalidExtension,
		},
		{
			name:     "not an image",
			kind:     KindLogo,
			filename: "logo.png",
			content:  []byte("definitely not a png"),
			wantErr:  ErrInvalidImage,
		},
		{
			name:     "declared dimensions too large",
			kind:     KindLogo,
			filename: "logo.png",
			content:  pngHeader(50000, 50000),
			wantErr:  ErrInvalidImage,
		},
		{
			name:     "too large",
			kind:     KindLogo,
			filename: "logo.png",
			content:  bytes.Repeat([]byte{0}, 64*1024+1),
			wantErr:  ErrTooLarge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, err := svc.Save(tt.kind, tt.filename, bytes.NewReader(tt.content))
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Regexp(t, nameRegex, url)

			img, err := imaging.Open(filepath.Join(dir, strings.TrimPrefix(url, "/static/uploads/")))
			require.NoError(t, err)
			assert.Equal(t, tt.wantSize, img.Bounds().Size())

			require.NoError(t, svc.Remove(url))
			_, err = os.Stat(filepath.Join(dir, filepath.Base(url)))
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestService_Remove_ignoresForeignURLs(t *testing.T) {
	svc := NewService(core.UploadsConfig{Dir: t.TempDir(), URL: "/static/uploads", MaxSize: 1024})
	assert.NoError(t, svc.Remove(""))
	assert.NoError(t, svc.Remove("/static/favicon.svg"))
	assert.NoError(t, svc.Remove("/static/uploads/missing.png"))
}

func TestService_Save_pixelLimit(t *testing.T) {
	svc := NewService(core.UploadsConfig{Dir: t.TempDir(), URL: "/static/uploads", MaxSize: 64 * 1024})
	defer func(max int64) { MaxPixels = max }(MaxPixels)
	MaxPixels = 100 * 100

	_, err := svc.Save(KindIcon, "icon.png", bytes.NewReader(encodedImage(t, 100, 100, imaging.PNG)))
	require.NoError(t, err)

	_, err = svc.Save(KindIcon, "icon.png", bytes.NewReader(encodedImage(t, 101, 100, imaging.PNG)))
	assert.Equal(t, ErrInvalidImage, err)
}
