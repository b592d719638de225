package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/prism/engine/assets/loaders"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/systems"
)

var ErrClosed = errors.New("asset manager already closed")

type AssetInfo struct {
	Path       string
	Label      string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

// ReloadRequest asks the frame loop to re-pack a changed file under Label.
type ReloadRequest struct {
	Path  string
	Label string
	Type  metadata.ResourceType
}

// AssetManager loads files through per-type loaders and, when watching,
// queues reload requests for files it has loaded before. Requests are only
// queued here; applying them is left to the frame goroutine.
type AssetManager struct {
	dir     string
	jobs    *systems.JobSystem
	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader
	pending map[string]ReloadRequest

	mutex sync.RWMutex

	fsnotify *fsnotify.Watcher
	done     chan struct{}
	stopped  chan struct{}
	isClosed bool
}

// NewAssetManager resolves relative paths against dir. jobs may be nil, in
// which case DecodeAll decodes sequentially.
func NewAssetManager(dir string, jobs *systems.JobSystem) *AssetManager {
	am := &AssetManager{
		dir:     dir,
		jobs:    jobs,
		assets:  make(map[string]AssetInfo),
		loaders: make(map[metadata.ResourceType]Loader),
		pending: make(map[string]ReloadRequest),
	}
	am.registerLoader(metadata.ResourceTypeImage, &loaders.ImageLoader{})
	am.registerLoader(metadata.ResourceTypeBitmapFont, &loaders.BitmapFontLoader{})
	am.registerLoader(metadata.ResourceTypeSystemFont, &loaders.SystemFontLoader{})
	am.registerLoader(metadata.ResourceTypeSpriteSheet, &loaders.SpriteSheetLoader{})
	return am
}

func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

func (am *AssetManager) resolve(path string) string {
	if !filepath.IsAbs(path) && am.dir != "" {
		path = filepath.Join(am.dir, path)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return filepath.Clean(path)
}

// Load reads a file with the loader registered for its extension. The file
// is remembered so that later changes to it produce reload requests.
func (am *AssetManager) Load(path string) (*metadata.Resource, error) {
	full := am.resolve(path)
	assetType := determineAssetType(full)
	loader, ok := am.loaders[assetType]
	if !ok {
		return nil, fmt.Errorf("no loader registered for %s: %w", path, core.ErrNotFound)
	}
	res, err := loader.Load(full)
	if err != nil {
		return nil, err
	}

	am.mutex.Lock()
	am.assets[full] = AssetInfo{
		Path:       full,
		Label:      res.Name,
		Type:       assetType,
		LastLoaded: time.Now(),
	}
	am.mutex.Unlock()
	return res, nil
}

// Track binds an already packed label to a file so changes to the file are
// reported under that label.
func (am *AssetManager) Track(label, path string) {
	full := am.resolve(path)
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[full] = AssetInfo{Path: full, Label: label, Type: determineAssetType(full), LastLoaded: time.Now()}
}

func (am *AssetManager) Asset(path string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[am.resolve(path)]
	return info, ok
}

/**
 * @brief Loads every path, on the job system when one was given. Results keep
 * the order of paths; failed entries are nil and their errors are joined.
 */
func (am *AssetManager) DecodeAll(paths []string) ([]*metadata.Resource, error) {
	out := make([]*metadata.Resource, len(paths))
	errs := make([]error, len(paths))

	if am.jobs == nil {
		for i, p := range paths {
			out[i], errs[i] = am.Load(p)
		}
		return out, errors.Join(errs...)
	}

	for i, p := range paths {
		i := i
		am.jobs.Submit(metadata.JobTask{
			Type:        metadata.JOB_TYPE_RESOURCE_LOAD,
			InputParams: p,
			OnStart: func(params interface{}, results chan<- interface{}) error {
				res, err := am.Load(params.(string))
				if err != nil {
					return err
				}
				results <- res
				return nil
			},
			OnComplete: func(results <-chan interface{}) {
				out[i] = (<-results).(*metadata.Resource)
			},
			OnFailure: func(_ <-chan interface{}, err error) {
				errs[i] = err
			},
		})
	}
	am.jobs.Wait()
	return out, errors.Join(errs...)
}

// Watch starts watching the asset directory and all its sub-directories.
func (am *AssetManager) Watch() error {
	if am.isClosed {
		return ErrClosed
	}
	if am.fsnotify != nil {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	am.fsnotify = watcher
	am.done = make(chan struct{})
	am.stopped = make(chan struct{})

	if err := am.watchRecursive(am.resolve(am.dir)); err != nil {
		watcher.Close()
		am.fsnotify = nil
		return err
	}
	go am.start()
	core.LogInfo("Watching assets in %s", am.dir)
	return nil
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			if e.Op&fsnotify.Create != 0 {
				if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
					if err := am.watchRecursive(e.Name); err != nil {
						core.LogWarn("failed to watch %s: %s", e.Name, err)
					}
					continue
				}
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				am.handleFileEvent(e.Name)
			}
			if e.Op&fsnotify.Remove != 0 {
				am.removeAsset(e.Name)
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			return
		}
	}
}

// watchRecursive adds all directories under path to the watch list.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.WalkDir(path, func(walkPath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return am.fsnotify.Add(walkPath)
		}
		return nil
	})
}

// handleFileEvent queues a reload for files that were loaded or tracked.
func (am *AssetManager) handleFileEvent(path string) {
	full := filepath.Clean(path)
	am.mutex.Lock()
	defer am.mutex.Unlock()

	info, ok := am.assets[full]
	if !ok {
		return
	}
	am.pending[full] = ReloadRequest{Path: full, Label: info.Label, Type: info.Type}
	core.LogDebug("asset %s changed, reload of %q queued", full, info.Label)
}

func (am *AssetManager) removeAsset(path string) {
	full := filepath.Clean(path)
	am.mutex.Lock()
	defer am.mutex.Unlock()
	delete(am.assets, full)
	delete(am.pending, full)
}

// Drain returns the queued reload requests ordered by path and clears the
// queue. Several changes to one file collapse into one request.
func (am *AssetManager) Drain() []ReloadRequest {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	if len(am.pending) == 0 {
		return nil
	}
	out := make([]ReloadRequest, 0, len(am.pending))
	for _, r := range am.pending {
		out = append(out, r)
	}
	clear(am.pending)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (am *AssetManager) Close() error {
	if am.isClosed {
		return nil
	}
	am.isClosed = true
	if am.fsnotify == nil {
		return nil
	}
	close(am.done)
	<-am.stopped
	return am.fsnotify.Close()
}
