package uploadsvc

import (
	"bytes"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/quickreceipt/core"
)

// Kind is the purpose of an uploaded image, which determines its thumbnail box.
type Kind string

const (
	KindLogo    Kind = "logo"
	KindFavicon Kind = "favicon"
	KindIcon    Kind = "icon"
	KindOGImage Kind = "og_image"
)

var (
	ErrInvalidExtension = errors.New("allowed file types: png, jpg, jpeg, gif")
	ErrTooLarge         = errors.New("file is too large")
	ErrInvalidImage     = errors.New("file is not a valid image")

	// MaxPixels bounds the size of a decoded upload.
	MaxPixels int64 = 89_478_485

	allowedExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true}

	boxes = map[Kind][2]int{
		KindLogo:    {400, 200},
		KindFavicon: {64, 64},
		KindIcon:    {512, 512},
		KindOGImage: {1200, 630},
	}
)

type Service struct {
	dir     string
	url     string
	maxSize int64
}

func NewService(conf core.UploadsConfig) *Service {
	return &Service{
		dir:     conf.Dir,
		url:     strings.TrimRight(conf.URL, "/"),
		maxSize: conf.MaxSize,
	}
}

// Save validates an uploaded image, stores its thumbnail as `<kind>_<8 hex>.png` and returns its URL.
func (svc *Service) Save(kind Kind, filename string, r io.Reader) (string, error) {
	box, ok := boxes[kind]
	if !ok {
		return "", errors.Errorf("unknown upload kind %q", kind)
	}
	if !allowedExtensions[strings.ToLower(filepath.Ext(filename))] {
		return "", ErrInvalidExtension
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, svc.maxSize+1))
	if err != nil {
		return "", errors.Wrap(err, "reading upload")
	}
	if n > svc.maxSize {
		return "", ErrTooLarge
	}

	// the header is checked first, a small file can declare a huge image
	cfg, _, err := image.DecodeConfig(bytes.NewReader(buf.Bytes()))
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return "", ErrInvalidImage
	}

	img, err := imaging.Decode(&buf, imaging.AutoOrientation(true))
	if err != nil {
		return "", ErrInvalidImage
	}
	thumb := imaging.Fit(img, box[0], box[1], imaging.Lanczos)

	if err = os.MkdirAll(svc.dir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating uploads dir")
	}
	name := string(kind) + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8] + ".png"
	if err = imaging.Save(thumb, filepath.Join(svc.dir, name)); err != nil {
		return "", errors.Wrap(err, "saving upload")
	}
	return svc.url + "/" + name, nil
}

// Remove deletes a previously saved upload. URLs that are not uploads are ignored.
func (svc *Service) Remove(url string) error {
	if url == "" || !strings.HasPrefix(url, svc.url+"/") {
		return nil
	}
	err := os.Remove(filepath.Join(svc.dir, filepath.Base(url)))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing upload")
	}
	return nil
}

// Dir is where the uploads are stored, served under the uploads URL.
func (svc *Service) Dir() string { return svc.dir }
