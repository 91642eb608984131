package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"

	"observatory/internal/api"
)

func artifactCommands() []obsCommand {
	return []obsCommand{
		&listArtifacts{},
		&uploadArtifact{},
		&downloadArtifact{},
		&promoteArtifact{},
		&deleteArtifact{},
	}
}

type listArtifacts struct {
	output outputFlag
}

func (*listArtifacts) Name() string { return "list" }

func (*listArtifacts) Help() Help {
	return Help{
		Synopsis: "List the artifacts of a model.",
		Args:     "MODEL_ID",
		Detail: `List the artifacts of MODEL_ID. In table output the active artifact is
marked with *.`,
	}
}

func (c *listArtifacts) SetFlags(f *flag.FlagSet) {
	f.Var(&c.output, "o", "output format: table, json or yaml")
}

func (c *listArtifacts) Execute(ctx context.Context, e *Env, args []string) error {
	id, err := modelArg(args)
	if err != nil {
		return err
	}
	arts, err := e.Client.ListArtifacts(ctx, id)
	if err != nil {
		return err
	}
	var active *api.Model
	if c.output.String() == formatTable {
		active = findModel(ctx, e, id)
	}
	return c.output.write(e.Stdout, arts, artifactHeaders, artifactRows(arts, active))
}

// findModel looks id up for display purposes. A failure is logged and
// yields nil.
func findModel(ctx context.Context, e *Env, id api.ID) *api.Model {
	models, err := e.Client.ListModels(ctx)
	if err != nil {
		log.WithError(err).Warn("cannot resolve active artifact")
		return nil
	}
	for i := range models {
		if models[i].ID == id {
			return &models[i]
		}
	}
	return nil
}

type uploadArtifact struct {
	version    string
	promote    bool
	noProgress bool
	output     outputFlag
}

func (*uploadArtifact) Name() string { return "upload" }

func (*uploadArtifact) Help() Help {
	return Help{
		Synopsis: "Upload an artifact file to a model.",
		Args:     "MODEL_ID FILE",
		Detail: `Upload FILE as a new artifact of MODEL_ID and show a progress bar on
stderr.

Without -version, .zip files are labeled v<YYMMDDhhmmss> from the current
time and other files are labeled by the backend.`,
		Example: "obsctl artifacts upload -promote -version v3 1 ./weights.pt",
	}
}

func (c *uploadArtifact) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.version, "version", "", "version label of the upload")
	f.BoolVar(&c.promote, "promote", false, "make the upload the active artifact")
	f.BoolVar(&c.noProgress, "no-progress", false, "do not show a progress bar")
	f.Var(&c.output, "o", "output format: table, json or yaml")
}

func (c *uploadArtifact) Execute(ctx context.Context, e *Env, args []string) error {
	if len(args) != 2 {
		return usageError("expected MODEL_ID and FILE")
	}
	id, path := api.ID(strings.TrimSpace(args[0])), args[1]
	if id == "" {
		return usageError("empty MODEL_ID")
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	version := api.ResolveVersion(c.version, filepath.Base(path), e.Now(), nil)
	up := api.Upload{Path: path, Version: version, Promote: c.promote}

	var bar *progressBar
	if !c.noProgress {
		bar, err = newProgressBar(e, info.Size(), filepath.Base(path))
		if err != nil {
			return err
		}
		up.OnProgress = bar.setPercent
	}

	art, err := e.Client.UploadArtifact(ctx, id, up)
	if bar != nil {
		bar.finish()
	}
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"model":    id,
		"artifact": art.ID,
		"version":  art.Version,
		"size":     humanize.Bytes(uint64(art.Size)),
	}).Info("artifact uploaded")
	return c.output.write(e.Stdout, art, artifactHeaders, artifactRows([]api.Artifact{art}, nil))
}

// progressBar renders upload progress. The bar is static and redrawn on
// each percent change, which may happen on the upload goroutine.
type progressBar struct {
	mu   sync.Mutex
	bar  *pb.ProgressBar
	out  io.Writer
	size int64
	done bool
}

func newProgressBar(e *Env, size int64, name string) (*progressBar, error) {
	bar := pb.New64(size)
	bar.Set(pb.Bytes, true)
	bar.Set(pb.Static, true)
	bar.Set("prefix", name+": ")
	bar.SetWriter(e.Stderr)
	if err := bar.Err(); err != nil {
		return nil, err
	}
	bar.Start()
	return &progressBar{bar: bar, out: e.Stderr, size: size}, nil
}

func (p *progressBar) setPercent(percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}
	p.bar.SetCurrent(p.size * int64(percent) / 100)
	p.bar.Write()
}

func (p *progressBar) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}
	p.done = true
	p.bar.Finish()
	p.bar.Write()
	fmt.Fprintln(p.out)
}

type downloadArtifact struct {
	dir      string
	artifact string
}

func (*downloadArtifact) Name() string { return "download" }

func (*downloadArtifact) Help() Help {
	return Help{
		Synopsis: "Download the active artifact of a model.",
		Args:     "MODEL_ID",
		Detail: `Download the active artifact of MODEL_ID, or the artifact named by
-artifact, into -dir (default download_dir from the config file). The
written path is printed.`,
		Example: "obsctl artifacts download -dir /tmp 1",
	}
}

func (c *downloadArtifact) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dir, "dir", "", "destination directory (default from config)")
	f.StringVar(&c.artifact, "artifact", "", "artifact id to download instead of the active one")
}

func (c *downloadArtifact) Execute(ctx context.Context, e *Env, args []string) error {
	id, err := modelArg(args)
	if err != nil {
		return err
	}
	dir := c.dir
	if dir == "" {
		dir = e.Config.DownloadDir
	}

	var path string
	if aid := strings.TrimSpace(c.artifact); aid != "" {
		path, err = e.Client.DownloadArtifact(ctx, id, api.ID(aid), "", dir)
	} else {
		var name string
		if m := findModel(ctx, e, id); m != nil {
			name = m.ActiveArtifact
		}
		path, err = e.Client.DownloadActiveArtifact(ctx, id, name, dir)
		if api.StatusOf(err) == http.StatusNotFound {
			return fmt.Errorf("model %s has no active artifact: %w", id, err)
		}
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(e.Stdout, path)
	return nil
}

type promoteArtifact struct{}

func (*promoteArtifact) Name() string { return "promote" }

func (*promoteArtifact) Help() Help {
	return Help{
		Synopsis: "Make an artifact the active one of its model.",
		Args:     "MODEL_ID ARTIFACT_ID",
	}
}

func (*promoteArtifact) SetFlags(*flag.FlagSet) {}

func (*promoteArtifact) Execute(ctx context.Context, e *Env, args []string) error {
	id, aid, err := artifactArgs(args)
	if err != nil {
		return err
	}
	art, err := e.Client.PromoteArtifact(ctx, id, aid)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.Stdout, "%s %s is now active for model %s\n", art.Filename, art.Version, id)
	return nil
}

type deleteArtifact struct {
	yes bool
}

func (*deleteArtifact) Name() string { return "delete" }

func (*deleteArtifact) Help() Help {
	return Help{
		Synopsis: "Delete an artifact.",
		Args:     "MODEL_ID ARTIFACT_ID",
		Detail:   `Delete ARTIFACT_ID of MODEL_ID. Deletion cannot be undone, so -y is required.`,
	}
}

func (c *deleteArtifact) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "y", false, "confirm the deletion")
}

func (c *deleteArtifact) Execute(ctx context.Context, e *Env, args []string) error {
	id, aid, err := artifactArgs(args)
	if err != nil {
		return err
	}
	if !c.yes {
		return usageError("refusing to delete without -y")
	}
	if err := e.Client.DeleteArtifact(ctx, id, aid); err != nil {
		return err
	}
	fmt.Fprintf(e.Stdout, "deleted artifact %s of model %s\n", aid, id)
	return nil
}

func artifactArgs(args []string) (api.ID, api.ID, error) {
	if len(args) != 2 {
		return "", "", usageError("expected MODEL_ID and ARTIFACT_ID")
	}
	id, aid := api.ID(strings.TrimSpace(args[0])), api.ID(strings.TrimSpace(args[1]))
	if id == "" || aid == "" {
		return "", "", usageError("empty id")
	}
	return id, aid, nil
}
