// Package preview serves a converted dataset over HTTP: the image list and
// PNG renders of each image with its polygons drawn over the source mask.
package preview

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"path/filepath"
	"strconv"
	"time"

	"mask2coco/internal/coco"
	"mask2coco/internal/maskio"
	"mask2coco/internal/render"
	"mask2coco/internal/version"
	"mask2coco/pkg/colorutil"
	"mask2coco/pkg/geometry"

	"github.com/nfnt/resize"
	http "github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// MaxScale bounds the scale parameter of /render.
const MaxScale = 4.0

// ImageSummary is one entry of /images.
type ImageSummary struct {
	ID          int    `json:"id"`
	FileName    string `json:"file_name"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Annotations int    `json:"annotations"`
}

// Server renders one dataset. It is read-only after construction and safe
// for concurrent requests.
type Server struct {
	ds       *coco.Dataset
	masksDir string
	colors   map[int]colorutil.RGB
	images   map[int]coco.Image
	byImage  map[int][]coco.Record
	log      *zap.Logger
}

// NewServer indexes ds. masksDir may be empty, in which case polygons are
// drawn on a blank canvas of the declared image size.
func NewServer(ds *coco.Dataset, masksDir string, colors map[int]colorutil.RGB, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		ds:       ds,
		masksDir: masksDir,
		colors:   colors,
		images:   make(map[int]coco.Image, len(ds.Images)),
		byImage:  ds.AnnotationsByImage(),
		log:      log,
	}
	for _, img := range ds.Images {
		s.images[img.ID] = img
	}
	return s
}

// ListenAndServe blocks serving on addr.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Handler:      s.Handle,
		Name:         "cocoview",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	s.log.Info("serving dataset", zap.String("addr", addr), zap.Int("images", len(s.ds.Images)))
	return srv.ListenAndServe(addr)
}

// Handle routes a request.
func (s *Server) Handle(c *http.RequestCtx) {
	start := time.Now()
	switch string(c.Path()) {
	case "/images":
		s.handleImages(c)
	case "/render":
		s.handleRender(c)
	case "/version":
		writeJSON(c, version.Get())
	default:
		c.Error("not found", http.StatusNotFound)
	}
	s.log.Debug("request",
		zap.ByteString("uri", c.RequestURI()),
		zap.Int("status", c.Response.StatusCode()),
		zap.Duration("elapsed", time.Since(start)))
}

func (s *Server) handleImages(c *http.RequestCtx) {
	out := make([]ImageSummary, 0, len(s.ds.Images))
	for _, img := range s.ds.Images {
		out = append(out, ImageSummary{
			ID:          img.ID,
			FileName:    img.FileName,
			Width:       img.Width,
			Height:      img.Height,
			Annotations: len(s.byImage[img.ID]),
		})
	}
	writeJSON(c, out)
}

func (s *Server) handleRender(c *http.RequestCtx) {
	args := c.QueryArgs()

	id, err := args.GetUint("id")
	if err != nil {
		c.Error("missing or invalid id", http.StatusBadRequest)
		return
	}
	entry, ok := s.images[id]
	if !ok {
		c.Error(fmt.Sprintf("no image with id %d", id), http.StatusNotFound)
		return
	}

	scale := 1.0
	if raw := args.Peek("scale"); len(raw) > 0 {
		scale, err = strconv.ParseFloat(string(raw), 64)
		if err != nil || scale <= 0 || scale > MaxScale {
			c.Error(fmt.Sprintf("scale must be in (0, %g]", MaxScale), http.StatusBadRequest)
			return
		}
	}

	style := render.DefaultStyle
	style.Fill, _ = strconv.ParseBool(string(args.Peek("fill")))

	var base image.Image
	if s.masksDir != "" {
		base, err = maskio.Load(filepath.Join(s.masksDir, entry.FileName))
		if err != nil {
			s.log.Warn("mask unavailable, drawing on blank canvas",
				zap.String("file", entry.FileName), zap.Error(err))
			base = nil
		}
	}

	size := geometry.Size{Width: entry.Width, Height: entry.Height}
	var out image.Image = render.Overlay(base, size, s.byImage[id], s.colors, style)
	if scale != 1 {
		w := uint(float64(out.Bounds().Dx())*scale + 0.5)
		if w == 0 {
			w = 1
		}
		out = resize.Resize(w, 0, out, resize.NearestNeighbor)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		s.log.Error("failed to encode render", zap.Int("id", id), zap.Error(err))
		c.Error("encode failed", http.StatusInternalServerError)
		return
	}
	c.SetContentType("image/png")
	c.SetBody(buf.Bytes())
}

func writeJSON(c *http.RequestCtx, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.Error(err.Error(), http.StatusInternalServerError)
		return
	}
	c.SetContentType("application/json")
	c.SetBody(data)
}
