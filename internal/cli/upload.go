package cli

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/jwhyun/mediagate/internal/cache"
	"github.com/jwhyun/mediagate/internal/media"
	"github.com/jwhyun/mediagate/internal/pipeline"
	"github.com/jwhyun/mediagate/internal/progress"
	"github.com/jwhyun/mediagate/internal/storage"
	"github.com/jwhyun/mediagate/internal/transcoder/image"
	"github.com/jwhyun/mediagate/internal/transcoder/video"
	"github.com/jwhyun/mediagate/internal/uploader"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [files...]",
	Short: "Transcode and upload media files",
	Long: `Validate, transcode and upload one or more files.

Images come out as WebP (animated GIFs pass through untouched), videos as
WebM. Shell globs and explicit paths both work.

Examples:
  mediagate upload photo.jpg
  mediagate upload 'shots/*.png' --folder=gallery
  mediagate upload clip.mp4 --open`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

var (
	uploadFolder   string
	uploadParallel int
	uploadOpen     bool
)

func init() {
	uploadCmd.Flags().StringVarP(&uploadFolder, "folder", "f", "", "Folder prefix for stored keys")
	uploadCmd.Flags().IntVarP(&uploadParallel, "parallel", "p", 0, "Parallel uploads (default: 4)")
	uploadCmd.Flags().BoolVar(&uploadOpen, "open", false, "Open the uploaded file in the browser")
}

type uploadResult struct {
	File string `json:"file"`
	URL  string `json:"url,omitempty"`
	Err  string `json:"error,omitempty"`
}

func runUpload(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files to upload")
	}

	svc, err := buildService()
	if err != nil {
		return err
	}

	parallel := uploadParallel
	if parallel <= 0 {
		parallel = cfg.Parallel
	}

	folder := uploadFolder
	if folder == "" {
		folder = cfg.Folder
	}

	ctx := cmd.Context()
	stream := progress.NewStream()
	drawn := drawProgress(stream, "uploading", quietMode || jsonOutput)

	var urls []string
	var uploadErr error
	if len(files) == 1 {
		var url string
		url, uploadErr = svc.Upload(ctx, files[0], cfg.CallerID, pipeline.Options{
			Folder:   folder,
			Reporter: stream,
		})
		urls = []string{url}
	} else {
		urls, uploadErr = svc.UploadAll(ctx, files, cfg.CallerID, pipeline.Options{
			Folder:   folder,
			Reporter: stream,
			Parallel: parallel,
		})
	}

	if uploadErr != nil {
		stream.Fail(uploadErr)
	} else {
		stream.Complete()
	}
	<-drawn

	results := make([]uploadResult, len(files))
	successful, failed := 0, 0
	for i, f := range files {
		results[i] = uploadResult{File: f.Name}
		if i < len(urls) && urls[i] != "" {
			results[i].URL = urls[i]
			printer.FileUploaded(f.Name, urls[i])
			successful++
		} else {
			if uploadErr != nil {
				results[i].Err = uploadErr.Error()
			}
			printer.FileFailed(f.Name, uploadErr)
			failed++
		}
	}
	printer.Summary(successful, failed)

	if jsonOutput {
		if err := printer.JSON(results); err != nil {
			return err
		}
	}

	if uploadErr != nil {
		return uploadErr
	}

	if uploadOpen && len(urls) > 0 && urls[0] != "" {
		if err := browser.OpenURL(urls[0]); err != nil {
			printer.Error("failed to open browser: %v", err)
		}
	}
	return nil
}

func buildService() (*pipeline.Service, error) {
	store, err := storage.NewMinIOStorage(&storage.Config{
		Endpoint:      cfg.Endpoint,
		AccessKey:     cfg.AccessKey,
		SecretKey:     cfg.SecretKey,
		Bucket:        cfg.Bucket,
		UseSSL:        cfg.UseSSL,
		Region:        cfg.Region,
		PublicBaseURL: cfg.PublicBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	loader := video.NewLoader(video.Config{
		FFmpegPath:  cfg.FFmpegPath,
		FFprobePath: cfg.FFprobePath,
	})

	constraints := media.DefaultConstraints()
	validator := media.NewValidator(constraints, video.NewProber(loader))
	dispatcher := pipeline.NewDispatcher(validator,
		image.NewWebPTranscoder(constraints.ImageTarget),
		video.NewTranscoder(loader, constraints.VideoTarget),
	)
	return pipeline.NewService(dispatcher, uploader.New(store), cache.Noop{}), nil
}

func collectFiles(args []string) ([]media.File, error) {
	var paths []string
	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			// not a pattern, treat as a literal path
			matches = []string{arg}
		}
		paths = append(paths, matches...)
	}

	files := make([]media.File, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		files = append(files, media.File{
			Name:        filepath.Base(path),
			ContentType: detectContentType(path, data),
			Data:        data,
		})
	}
	return files, nil
}

func detectContentType(path string, data []byte) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}
