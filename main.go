package main

import (
	"strings"
	"sync"

	"github.com/moyoez/uploadqueue-go/api"
	"github.com/moyoez/uploadqueue-go/api/eventhub"
	"github.com/moyoez/uploadqueue-go/queue"
	"github.com/moyoez/uploadqueue-go/share"
	"github.com/moyoez/uploadqueue-go/tool"
	"github.com/moyoez/uploadqueue-go/types"
)

func main() {
	flags := tool.SetFlags()
	cfg, err := tool.LoadConfig(flags.UseConfigPath)
	if err != nil {
		tool.DefaultLogger.Fatalf("%v", err)
	}

	// flag overrides sit on top of defaults + config file
	override := types.UploadConfig{
		URL:               flags.UseURL,
		Method:            flags.UseMethod,
		Alias:             flags.UseAlias,
		QueueLimit:        flags.UseQueueLimit,
		MaxFileSize:       flags.UseMaxFileSize,
		RateLimitBPS:      flags.UseRateLimitBPS,
		DisableMultipart:  flags.UseDisableMulti,
		RemoveAfterUpload: flags.UseRemoveAfterUp,
		InsecureTLS:       flags.UseInsecureTLS,
		Preflight:         flags.UsePreflight,
	}
	if flags.UseAllowedMime != "" {
		override.AllowedMimeType = strings.Split(flags.UseAllowedMime, ",")
	}
	cfg = *types.Merged(&cfg, &override)

	tool.InitLogger()
	if flags.Log == "dev" {
		tool.SetDebugLogger()
	}

	if cfg.URL == "" {
		tool.DefaultLogger.Fatalf("no upload target, pass -url")
	}
	paths := tool.FlagArgs()
	if len(paths) == 0 && flags.UseServeAddr == "" {
		tool.DefaultLogger.Fatalf("nothing to do: no files given and no -serve address")
	}

	u := queue.New(&cfg, nil)
	hub := eventhub.New()
	results := share.NewResults(0)

	done := make(chan struct{})
	var once sync.Once
	api.Attach(u, hub, results, queue.Callbacks{
		OnItemProgress: func(it *queue.Item, pct int) {
			tool.DefaultLogger.Debugf("%s: %d%%", it.File.Name, pct)
		},
		OnItemSuccess: func(it *queue.Item, resp types.Response) {
			tool.DefaultLogger.Infof("%s uploaded (status %d)", it.File.Name, resp.Status)
		},
		OnItemError: func(it *queue.Item, resp types.Response) {
			tool.DefaultLogger.Errorf("%s failed (status %d)", it.File.Name, resp.Status)
		},
		OnAddFailed: func(fd types.FileDescriptor, filterName string, _ *types.UploadConfig) {
			tool.DefaultLogger.Warnf("%s rejected by filter %s", fd.Name, filterName)
		},
		OnFinished: func() {
			once.Do(func() { close(done) })
		},
	})

	var files []types.FileDescriptor
	for _, path := range paths {
		fd, err := tool.DescribeFile(path)
		if err != nil {
			tool.DefaultLogger.Warnf("Skipping %s: %v", path, err)
			continue
		}
		files = append(files, fd)
	}
	u.AddToQueue(files, nil, "")

	if flags.UseServeAddr != "" {
		server := api.NewServer(flags.UseServeAddr, u, hub, results)
		go func() {
			if err := server.Start(); err != nil {
				tool.DefaultLogger.Fatalf("API server: %v", err)
			}
		}()
	}

	start := cfg.AutoUpload || !flags.DoNotStartUploads
	if start && len(u.Queue()) > 0 {
		if err := u.UploadAll(); err != nil {
			tool.DefaultLogger.Fatalf("%v", err)
		}
		<-done
		tool.DefaultLogger.Infof("All transfers finished: %d uploaded, %d not uploaded",
			u.UploadedCount(), u.NotUploadedCount())
		if flags.UseServeAddr == "" {
			return
		}
	}

	if flags.UseServeAddr != "" {
		select {} // keep serving the status API
	}
}
