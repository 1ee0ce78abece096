package i18n

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/conneroisu/randomall/internal/logging"
)

// Watch reloads override catalogs whenever a <lang>.yaml file in the
// override directory changes. It returns once the watcher is running and
// stops when ctx is cancelled.
func (c *Catalog) Watch(ctx context.Context, logger logging.Logger) error {
	if c.dir == "" {
		return fmt.Errorf("locale watch requires an override directory")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create locale watcher: %w", err)
	}
	if err := watcher.Add(c.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", c.dir, err)
	}

	log := logger.WithComponent("i18n")
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				c.handleEvent(ctx, log, event)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn(ctx, err, "Locale watcher error")
			}
		}
	}()

	return nil
}

func (c *Catalog) handleEvent(ctx context.Context, log logging.Logger, event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	name := filepath.Base(event.Name)
	if filepath.Ext(name) != ".yaml" {
		return
	}
	lang := strings.TrimSuffix(name, ".yaml")
	if _, ok := c.base[lang]; !ok {
		return
	}

	if err := c.reload(lang); err != nil {
		log.Warn(ctx, err, "Failed to reload locale", "lang", lang)
		return
	}
	log.Info(ctx, "Locale reloaded", "lang", lang, "op", event.Op.String())
}
