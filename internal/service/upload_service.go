package service

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cabinstay/internal/config"
	"github.com/cabinstay/internal/constants"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/google/uuid"
)

var uploadScenes = map[string]struct{}{
	constants.UploadSceneProduct:  {},
	constants.UploadSceneCategory: {},
	constants.UploadSceneRoom:     {},
}

// UploadResult 上传结果
type UploadResult struct {
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
}

// UploadService 文件上传服务
type UploadService struct {
	cfg config.UploadConfig
	now func() time.Time
}

// NewUploadService 创建文件上传服务实例
func NewUploadService(cfg config.UploadConfig) *UploadService {
	if strings.TrimSpace(cfg.Dir) == "" {
		cfg.Dir = "uploads"
	}
	return &UploadService{cfg: cfg, now: time.Now}
}

// Dir 上传根目录
func (s *UploadService) Dir() string {
	return s.cfg.Dir
}

// Save 校验并保存上传文件，返回可访问的相对 URL
func (s *UploadService) Save(file *multipart.FileHeader, scene string) (*UploadResult, error) {
	if file == nil {
		return nil, fmt.Errorf("%w: file is required", ErrUploadInvalid)
	}
	scene = strings.ToLower(strings.TrimSpace(scene))
	if _, ok := uploadScenes[scene]; !ok {
		return nil, fmt.Errorf("%w: unknown scene %q", ErrUploadInvalid, scene)
	}
	if s.cfg.MaxSize > 0 && file.Size > s.cfg.MaxSize {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrUploadInvalid, s.cfg.MaxSize)
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if len(s.cfg.AllowedExtensions) > 0 && (ext == "" || !isAllowedExtension(ext, s.cfg.AllowedExtensions)) {
		return nil, fmt.Errorf("%w: extension %q not allowed", ErrUploadInvalid, ext)
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	head := make([]byte, 512)
	n, err := src.Read(head)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	contentType := http.DetectContentType(head[:n])
	if len(s.cfg.AllowedTypes) > 0 && !containsFold(s.cfg.AllowedTypes, contentType) {
		return nil, fmt.Errorf("%w: content type %s not allowed", ErrUploadInvalid, contentType)
	}

	result := &UploadResult{Size: file.Size, ContentType: contentType}
	if strings.HasPrefix(contentType, "image/") {
		width, height, err := imageDimensions(src, contentType)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUploadInvalid, err)
		}
		if (s.cfg.MaxWidth > 0 && width > s.cfg.MaxWidth) || (s.cfg.MaxHeight > 0 && height > s.cfg.MaxHeight) {
			return nil, fmt.Errorf("%w: image %dx%d exceeds %dx%d", ErrUploadInvalid, width, height, s.cfg.MaxWidth, s.cfg.MaxHeight)
		}
		result.Width, result.Height = width, height
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	rel := path.Join(scene, now.Format("2006"), now.Format("01"), uuid.NewString()+ext)
	target := filepath.Join(s.cfg.Dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, err
	}
	dst, err := os.Create(target)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(target)
		return nil, err
	}
	if err := dst.Close(); err != nil {
		return nil, err
	}
	result.URL = "/uploads/" + rel
	return result, nil
}

func isAllowedExtension(ext string, allowed []string) bool {
	for _, item := range allowed {
		normalized := strings.ToLower(strings.TrimSpace(item))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if ext == normalized {
			return true
		}
	}
	return false
}

func containsFold(values []string, target string) bool {
	for _, value := range values {
		if strings.EqualFold(strings.TrimSpace(value), target) {
			return true
		}
	}
	return false
}

func imageDimensions(src io.ReadSeeker, contentType string) (int, int, error) {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return 0, 0, err
	}
	if strings.EqualFold(contentType, "image/webp") {
		return webpDimensions(src)
	}
	cfg, _, err := image.DecodeConfig(src)
	if err != nil {
		return 0, 0, fmt.Errorf("decode image: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// webpDimensions 读取 RIFF 容器中首个 VP8/VP8L/VP8X 块的尺寸
func webpDimensions(src io.Reader) (int, int, error) {
	header := make([]byte, 12)
	if _, err := io.ReadFull(src, header); err != nil {
		return 0, 0, err
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WEBP" {
		return 0, 0, errors.New("invalid webp header")
	}
	for {
		chunk := make([]byte, 8)
		if _, err := io.ReadFull(src, chunk); err != nil {
			return 0, 0, err
		}
		size := int64(binary.LittleEndian.Uint32(chunk[4:8]))
		data := make([]byte, size)
		if _, err := io.ReadFull(src, data); err != nil {
			return 0, 0, err
		}
		if size%2 == 1 {
			if _, err := io.ReadFull(src, make([]byte, 1)); err != nil {
				return 0, 0, err
			}
		}
		switch string(chunk[0:4]) {
		case "VP8X":
			if len(data) < 10 {
				return 0, 0, errors.New("short VP8X chunk")
			}
			width := 1 + (int(data[4]) | int(data[5])<<8 | int(data[6])<<16)
			height := 1 + (int(data[7]) | int(data[8])<<8 | int(data[9])<<16)
			return width, height, nil
		case "VP8 ":
			if len(data) < 10 {
				return 0, 0, errors.New("short VP8 chunk")
			}
			return int(binary.LittleEndian.Uint16(data[6:8]) & 0x3FFF), int(binary.LittleEndian.Uint16(data[8:10]) & 0x3FFF), nil
		case "VP8L":
			if len(data) < 5 || data[0] != 0x2f {
				return 0, 0, errors.New("invalid VP8L chunk")
			}
			bits := binary.LittleEndian.Uint32(data[1:5])
			return int(bits&0x3FFF) + 1, int((bits>>14)&0x3FFF) + 1, nil
		}
	}
}
