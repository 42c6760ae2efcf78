package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/venue-atlas/internal/config"
	"github.com/sells-group/venue-atlas/internal/upload"
)

var uploadPath string

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload a feature collection to the map import API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return uploadFile(ctx, cmd, uploadPath)
	},
}

func newUploadClient(c config.UploadConfig) *upload.Client {
	return upload.NewClient(c.Account, c.Key, upload.WithBaseURL(c.BaseURL))
}

// uploadFile imports path and waits for the job to finish.
func uploadFile(ctx context.Context, cmd *cobra.Command, path string) error {
	if err := cfg.Validate("upload"); err != nil {
		return err
	}

	status, err := newUploadClient(cfg.Upload).ImportAndWait(ctx, path,
		upload.WithPollInterval(time.Duration(cfg.Upload.PollIntervalSecs)*time.Second),
		upload.WithPollTimeout(time.Duration(cfg.Upload.TimeoutSecs)*time.Second),
	)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s as table %s (job %s)\n", path, status.TableName, status.ID)
	return nil
}

func init() {
	uploadCmd.Flags().StringVar(&uploadPath, "file", "", "feature collection to upload (required)")
	_ = uploadCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(uploadCmd)
}
