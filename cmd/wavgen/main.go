// Package main provides wavgen, a command that renders projects to WAV files on local disk.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/book-expert/logger"
	"github.com/book-expert/synth-service/internal/assetutil"
	"github.com/book-expert/synth-service/internal/core"
	"github.com/book-expert/synth-service/internal/objectstore"
	"github.com/book-expert/synth-service/internal/studio"
	"github.com/book-expert/synth-service/internal/synth"
	"github.com/book-expert/synth-service/internal/synth/wave"
)

// Flag names.
const (
	flagDuration = "duration"
	flagTitle    = "title"
	flagOutput   = "output"
	flagTracks   = "tracks"
	flagWorkers  = "workers"
	flagSeed     = "seed"
	flagInspect  = "inspect"
)

// Flag descriptions.
const (
	flagDurationDesc = "Duration of each track in seconds"
	flagTitleDesc    = "Project title"
	flagOutputDesc   = "Directory that receives the project folder"
	flagTracksDesc   = "Number of tracks; more than one renders an album"
	flagWorkersDesc  = "Tracks rendered in parallel"
	flagSeedDesc     = "Noise seed for reproducible output (0 draws a random seed)"
	flagInspectDesc  = "Print the header of an existing WAV file and exit"
)

const (
	defaultDuration = 120
	defaultTitle    = "Untitled"
	defaultWorkers  = 2
	maxTracks       = 32
	manifestName    = "project.json"
	logFileName     = "wavgen.log"
	manifestPerm    = 0o600
)

var errNoTracks = errors.New("track count must be at least 1")

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	duration float64
	title    string
	output   string
	tracks   int
	workers  int
	seed     uint64
	inspect  string
}

func main() {
	flags := parseFlags()

	if flags.inspect != "" {
		err := inspect(flags.inspect)
		if err != nil {
			log.Fatalf("Failed to inspect %s: %v", flags.inspect, err)
		}

		return
	}

	appLog, err := logger.New(os.TempDir(), logFileName)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	project, err := render(ctx, flags, appLog)

	stop()

	closeErr := appLog.Close()
	if closeErr != nil {
		log.Printf("Failed to close logger: %v", closeErr)
	}

	if err != nil {
		log.Fatalf("Failed to render %q: %v", flags.title, err)
	}

	for _, track := range project.Tracks {
		fmt.Printf("%s\t%s\t%s\n", track.Title, track.AudioKey, assetutil.FormatFileSize(int64(track.SizeBytes)))
	}
}

func parseFlags() appFlags {
	var flags appFlags

	flag.Float64Var(&flags.duration, flagDuration, defaultDuration, flagDurationDesc)
	flag.StringVar(&flags.title, flagTitle, defaultTitle, flagTitleDesc)
	flag.StringVar(&flags.output, flagOutput, ".", flagOutputDesc)
	flag.IntVar(&flags.tracks, flagTracks, 1, flagTracksDesc)
	flag.IntVar(&flags.workers, flagWorkers, defaultWorkers, flagWorkersDesc)
	flag.Uint64Var(&flags.seed, flagSeed, 0, flagSeedDesc)
	flag.StringVar(&flags.inspect, flagInspect, "", flagInspectDesc)
	flag.Parse()

	return flags
}

// render synthesizes the project into <output>/<project id>/, names each track file after its
// title and writes a manifest next to the tracks.
func render(ctx context.Context, flags appFlags, appLog *logger.Logger) (core.Project, error) {
	if flags.tracks < 1 {
		return core.Project{}, errNoTracks
	}

	mode := core.ModeSingle
	if flags.tracks > 1 {
		mode = core.ModeAlbum
	}

	store, err := objectstore.NewDirStore(flags.output)
	if err != nil {
		return core.Project{}, err
	}

	options := []synth.Option{synth.WithLogger(appLog)}
	if flags.seed != 0 {
		options = append(options, synth.WithSeed(flags.seed))
	}

	synthesizer := synth.New(options...)
	projectStudio := studio.New(synthesizer, synthesizer.Format(), store, appLog, flags.workers, maxTracks)
	project := studio.NewProject(flags.title, mode, flags.tracks, flags.duration)

	rendered, err := projectStudio.Render(ctx, project)
	if err != nil {
		return rendered, err
	}

	for index, track := range rendered.Tracks {
		path, nameErr := nameTrack(store, track)
		if nameErr != nil {
			return rendered, nameErr
		}

		rendered.Tracks[index].AudioKey = path
	}

	manifestErr := writeManifest(filepath.Join(flags.output, rendered.ID, manifestName), rendered)
	if manifestErr != nil {
		return rendered, manifestErr
	}

	appLog.Info("Wrote %d track(s) for %q to %s", len(rendered.Tracks), rendered.Title,
		filepath.Join(flags.output, rendered.ID))

	return rendered, nil
}

// nameTrack renames a stored track after its title and returns the new path.
func nameTrack(store *objectstore.DirStore, track core.Track) (string, error) {
	stored, err := store.Path(track.AudioKey)
	if err != nil {
		return "", err
	}

	named := filepath.Join(filepath.Dir(stored), assetutil.WAVFileName(track.Title))

	renameErr := os.Rename(stored, named)
	if renameErr != nil {
		return "", fmt.Errorf("failed to name track %q: %w", track.Title, renameErr)
	}

	return named, nil
}

func writeManifest(path string, project core.Project) error {
	data, err := json.MarshalIndent(project, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	writeErr := os.WriteFile(path, data, manifestPerm)
	if writeErr != nil {
		return fmt.Errorf("failed to write manifest %s: %w", path, writeErr)
	}

	return nil
}

func inspect(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	header, err := wave.DecodeHeader(data)
	if err != nil {
		return err
	}

	if header.ByteRate == 0 {
		return fmt.Errorf("%w: byte rate is zero", wave.ErrUnsupportedLayout)
	}

	seconds := float64(header.DataSize) / float64(header.ByteRate)

	fmt.Printf("sample rate:  %d Hz\n", header.Format.SampleRate)
	fmt.Printf("channels:     %d\n", header.Format.Channels)
	fmt.Printf("bit depth:    %d\n", header.Format.BitsPerSample)
	fmt.Printf("payload:      %s\n", assetutil.FormatFileSize(int64(header.DataSize)))
	fmt.Printf("duration:     %s\n", assetutil.FormatDuration(seconds))

	return nil
}
