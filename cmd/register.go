package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/angeloszaimis/blobstream/config"
	"github.com/angeloszaimis/blobstream/internal/backend"
	"github.com/angeloszaimis/blobstream/internal/metadata"
)

type registerOptions struct {
	Key      string
	Name     string
	MimeType string
	Backend  string
}

func newRegisterCommand(configPath *string) *cobra.Command {
	var opts registerOptions

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a stored object and print its download path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return register(cmd.Context(), cfg, log, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.Key, "key", "", "object key inside the backend buckets")
	cmd.Flags().StringVar(&opts.Name, "name", "", "download file name (default: last path element of the key)")
	cmd.Flags().StringVar(&opts.MimeType, "mime", "", "content type (default: stored type, else inferred from the name)")
	cmd.Flags().StringVar(&opts.Backend, "backend", "", "backend to stat the object on (default: first configured)")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}

func register(ctx context.Context, cfg *config.Config, log *slog.Logger, opts registerOptions, out io.Writer) error {
	handles, err := backend.NewPool(cfg.Backends)
	if err != nil {
		return err
	}

	h := handles[0]
	if opts.Backend != "" {
		found := false
		for _, candidate := range handles {
			if candidate.Name == opts.Backend {
				h, found = candidate, true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown backend %q", opts.Backend)
		}
	}

	sess, err := backend.OpenBlob(ctx, h)
	if err != nil {
		return err
	}
	defer sess.Close()

	attrs, err := sess.Stat(ctx, opts.Key)
	if err != nil {
		return err
	}

	store, err := metadata.OpenStore(ctx, cfg.Metadata.Driver, cfg.Metadata.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	mimeType := opts.MimeType
	if mimeType == "" {
		mimeType = attrs.ContentType
	}

	f, err := store.Register(ctx, metadata.FileDescriptor{
		Size:        attrs.Size,
		MimeType:    mimeType,
		DisplayName: opts.Name,
		ObjectKey:   opts.Key,
	})
	if err != nil {
		return err
	}

	log.Info("registered file",
		slog.String("id", f.ID),
		slog.String("key", f.ObjectKey),
		slog.Int64("size", f.Size),
		slog.String("backend", h.Name),
	)

	_, err = fmt.Fprintf(out, "/dl/%s\n", f.ID)
	return err
}
