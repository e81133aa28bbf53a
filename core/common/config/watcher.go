package config

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/nyan233/littlegate/core/common/logger"
)

// Watcher 在配置文件被写入或者重新创建时重新加载
// 解析失败的配置会被丢弃, 回调只会收到校验通过的配置
type Watcher struct {
	path     string
	logger   logger.LLogger
	onChange func(cfg *Config)
	watcher  *fsnotify.Watcher
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// NewWatcher 监听的是文件所在的目录, 编辑器保存时常见的rename+create同样可以被捕获
func NewWatcher(path string, l logger.LLogger, onChange func(cfg *Config)) (*Watcher, error) {
	if l == nil {
		l = logger.DefaultLogger
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, err
	}
	w := &Watcher{
		path:     abs,
		logger:   l,
		onChange: onChange,
		watcher:  fw,
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			data, err := os.ReadFile(w.path)
			if err == nil && len(data) == 0 {
				// 写入者刚刚截断了文件, 等待下一次Write事件
				continue
			}
			var cfg *Config
			if err == nil {
				cfg, err = Parse(data)
			}
			if err != nil {
				w.logger.Warn("config reload failed, keep the old one: %v", err)
				continue
			}
			w.logger.Info("config reloaded from %s", w.path)
			w.onChange(cfg)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error: %v", err)
		}
	}
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}
