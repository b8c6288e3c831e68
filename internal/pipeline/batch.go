package pipeline

import (
	"context"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"mask2coco/internal/cache"
	"mask2coco/internal/coco"
	"mask2coco/internal/contour"
	"mask2coco/internal/maskio"
	"mask2coco/internal/metrics"
	"mask2coco/internal/palette"

	"go.uber.org/zap"
)

// DefaultWorkers is the worker count used when none is configured.
const DefaultWorkers = 4

// RegionCache stores traced regions by key. A miss is ok=false with a nil
// error.
type RegionCache interface {
	GetRegions(ctx context.Context, key string) ([]cache.Region, bool, error)
	SetRegions(ctx context.Context, key string, regions []cache.Region) error
}

// Options configures a Coordinator. Only Tracer is required.
type Options struct {
	Workers int
	Tracer  contour.Tracer
	Cache   RegionCache
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// Coordinator runs the image pipeline over a list of files.
type Coordinator struct {
	palette   *palette.Palette
	paletteFP string
	tracer    contour.Tracer
	workers   int
	cache     RegionCache
	metrics   *metrics.Metrics
	log       *zap.Logger
	catNames  map[int]string
}

// Batch is the merged output of a run.
type Batch struct {
	Images      []coco.ImageRef
	Annotations []coco.Annotation
	Failed      int
}

// New returns a coordinator over pal.
func New(pal *palette.Palette, opts Options) *Coordinator {
	c := &Coordinator{
		palette:   pal,
		paletteFP: pal.Fingerprint(),
		tracer:    opts.Tracer,
		workers:   opts.Workers,
		cache:     opts.Cache,
		metrics:   opts.Metrics,
		log:       opts.Logger,
		catNames:  make(map[int]string),
	}
	if c.tracer == nil {
		c.tracer = contour.Native{}
	}
	if c.workers < 1 {
		c.workers = 1
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	for _, cat := range pal.Categories() {
		c.catNames[cat.ID] = cat.Name
	}
	return c
}

// Workers returns the effective worker count.
func (c *Coordinator) Workers() int {
	return c.workers
}

// Run processes paths. The image id of a path is its 1-based position.
// Worker k takes positions k, k+N, k+2N, … into its own list; after all
// workers finish the lists are joined in worker order and annotation ids
// are numbered from 1 in that order. Unreadable images keep their image
// entry and contribute no annotations.
func (c *Coordinator) Run(ctx context.Context, paths []string) *Batch {
	start := time.Now()
	n := c.workers
	c.log.Info("batch started",
		zap.Int("images", len(paths)),
		zap.Int("workers", n),
		zap.String("tracer", c.tracer.Name()),
		zap.Int("colors", c.palette.Len()))

	perWorker := make([][]coco.Annotation, n)
	failures := make([]int, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for k := 0; k < n; k++ {
		go func(k int) {
			defer wg.Done()
			var out []coco.Annotation
			for i := k; i < len(paths); i += n {
				anns, ok := c.processPath(ctx, paths[i], i+1)
				if !ok {
					failures[k]++
				}
				out = append(out, anns...)
			}
			perWorker[k] = out
		}(k)
	}
	wg.Wait()

	batch := &Batch{Images: make([]coco.ImageRef, len(paths))}
	for i, p := range paths {
		batch.Images[i] = coco.ImageRef{ID: i + 1, FileName: filepath.Base(p)}
	}

	nextID := 1
	for k, anns := range perWorker {
		for _, a := range anns {
			a.ID = nextID
			nextID++
			batch.Annotations = append(batch.Annotations, a)
		}
		batch.Failed += failures[k]
	}

	c.log.Info("batch finished",
		zap.Int("images", len(batch.Images)),
		zap.Int("annotations", len(batch.Annotations)),
		zap.Int("failed", batch.Failed),
		zap.Duration("elapsed", time.Since(start)))

	return batch
}

// processPath returns the annotations of one file and whether it could be
// read. Nothing in here may abort the batch.
func (c *Coordinator) processPath(ctx context.Context, path string, imageID int) (anns []coco.Annotation, ok bool) {
	start := time.Now()
	defer func() {
		if e := recover(); e != nil {
			c.log.Error("panic while processing mask",
				zap.String("path", path), zap.Any("panic", e), zap.ByteString("stack", debug.Stack()))
			anns, ok = nil, false
		}
		c.metrics.ObserveImage(float64(time.Since(start).Microseconds())/1000, !ok)
	}()

	m, err := maskio.Read(path)
	if err != nil {
		c.log.Debug("skipping unreadable mask", zap.String("path", path), zap.Error(err))
		return nil, false
	}

	key := ""
	if c.cache != nil {
		key = cache.Key(m.Digest(), c.paletteFP, c.tracer.Name())
		regions, hit, err := c.cache.GetRegions(ctx, key)
		if err != nil {
			c.log.Warn("region cache read failed", zap.String("path", path), zap.Error(err))
		}
		c.metrics.CacheLookup(hit)
		if hit {
			return c.annotate(regions, imageID), true
		}
	}

	img, err := m.Decode()
	if err != nil {
		c.log.Debug("skipping undecodable mask", zap.String("path", path), zap.Error(err))
		return nil, false
	}

	regions, dropped := TraceRegions(img, c.palette, c.tracer)
	for i := 0; i < dropped; i++ {
		c.metrics.RegionDropped()
	}

	if c.cache != nil {
		if err := c.cache.SetRegions(ctx, key, regions); err != nil {
			c.log.Warn("region cache write failed", zap.String("path", path), zap.Error(err))
		}
	}

	return c.annotate(regions, imageID), true
}

func (c *Coordinator) annotate(regions []cache.Region, imageID int) []coco.Annotation {
	anns := Annotate(regions, imageID)
	if c.metrics != nil {
		counts := make(map[int]int)
		for _, a := range anns {
			counts[a.CategoryID]++
		}
		for id, n := range counts {
			c.metrics.AddAnnotations(c.catNames[id], n)
		}
	}
	return anns
}
