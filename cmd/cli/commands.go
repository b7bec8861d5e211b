//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/himanishpuri/audiosearch/internal/browser"
	"github.com/himanishpuri/audiosearch/internal/dataset"
	"github.com/himanishpuri/audiosearch/internal/tui"
	"github.com/himanishpuri/audiosearch/pkg/audiosearch"
	"github.com/himanishpuri/audiosearch/pkg/audiosearch/audio"
	"github.com/himanishpuri/audiosearch/pkg/audiosearch/fingerprint"
	"github.com/himanishpuri/audiosearch/pkg/logger"
	"github.com/himanishpuri/audiosearch/pkg/models"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const maxDisplay = 10

func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index [files...]",
		Short: "Copy files into the dataset and fingerprint them",
		Long: `Copies each file into the dataset directory and fingerprints it.
Without arguments every file already in the dataset is (re)indexed.
MIDI files are stored for browsing but carry no audio to fingerprint.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			names := make([]string, 0, len(args))
			if len(args) == 0 {
				if names, err = e.store.List(); err != nil {
					return err
				}
			}
			for _, path := range args {
				name, err := e.store.Import(path)
				if err != nil {
					return fmt.Errorf("importing %s: %w", path, err)
				}
				names = append(names, name)
			}
			if len(names) == 0 {
				fmt.Println("📭 Nothing to index")
				return nil
			}

			sum, err := indexFiles(cmd.Context(), e, names, os.Stderr)
			fmt.Printf("\n✅ Indexed %d file(s)", sum.indexed)
			if sum.skipped > 0 {
				fmt.Printf(", %d stored without fingerprints", sum.skipped)
			}
			fmt.Println()
			return err
		},
	}
}

type indexSummary struct {
	indexed int
	skipped int
}

// indexFiles fingerprints dataset files on cfg.Workers goroutines. A file
// that fails is logged and the rest carry on; the first failure is returned.
func indexFiles(ctx context.Context, e *env, names []string, progress io.Writer) (indexSummary, error) {
	log := logger.GetLogger()

	bar := progressbar.NewOptions(len(names),
		progressbar.OptionSetDescription("Fingerprinting"),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(progress, "\n")
		}),
	)

	var indexed, skipped atomic.Int64
	var firstErr error
	var errOnce atomic.Bool

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, e.cfg.Workers))
	for _, name := range names {
		g.Go(func() error {
			defer bar.Add(1)

			if !audiosearch.IsIndexable(name) {
				skipped.Add(1)
				return nil
			}
			path, err := e.store.Path(name)
			if err == nil {
				_, err = e.svc.IndexTrack(gctx, path, name)
			}
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				log.Errorf("Indexing %s failed: %v", name, err)
				if errOnce.CompareAndSwap(false, true) {
					firstErr = fmt.Errorf("indexing %s: %w", name, err)
				}
				return nil
			}
			indexed.Add(1)
			return nil
		})
	}
	waitErr := g.Wait()
	bar.Finish()

	sum := indexSummary{indexed: int(indexed.Load()), skipped: int(skipped.Load())}
	if waitErr != nil {
		return sum, waitErr
	}
	return sum, firstErr
}

func newMatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "match <audio_file>",
		Short: "Find the dataset tracks most similar to a clip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("🔍 Analyzing audio file...")

			var res *models.QueryResult
			if remote {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				if res, err = newClient(cfg).Query(cmd.Context(), args[0]); err != nil {
					return fmt.Errorf("failed to match: %w", err)
				}
			} else {
				e, err := openEnv(cmd)
				if err != nil {
					return err
				}
				defer e.Close()

				ctx, cancel := context.WithTimeout(cmd.Context(), e.cfg.RequestTimeout)
				defer cancel()
				if res, err = e.svc.Match(ctx, args[0]); err != nil {
					return fmt.Errorf("failed to match: %w", err)
				}
			}

			printMatches(os.Stdout, res)
			return nil
		},
	}
}

func printMatches(w io.Writer, res *models.QueryResult) {
	if len(res.Matches) == 0 {
		fmt.Fprintln(w, "\n❌ No matches found in dataset")
		return
	}

	fmt.Fprintf(w, "\n✅ Found %d match(es) in %.2fms\n\n", len(res.Matches), res.ExecutionTimeMs)
	shown := min(len(res.Matches), maxDisplay)
	for i, m := range res.Matches[:shown] {
		fmt.Fprintf(w, "%2d. %-40s %5.1f%%\n", i+1, m.Filename, m.Similarity)
		if m.Score > 0 {
			fmt.Fprintf(w, "    Score: %d | Offset: %dms\n", m.Score, m.OffsetMs)
		}
	}
	if len(res.Matches) > shown {
		fmt.Fprintf(w, "... and %d more matches\n", len(res.Matches)-shown)
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the dataset files",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()
			return listDataset(os.Stdout, e, time.Now())
		},
	}
}

func listDataset(w io.Writer, e *env, now time.Time) error {
	entries, err := e.store.Entries()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "📭 Dataset is empty")
		return nil
	}

	tracks, err := e.svc.ListTracks()
	if err != nil {
		return fmt.Errorf("failed to list tracks: %w", err)
	}
	indexed := make(map[string]bool, len(tracks))
	for _, t := range tracks {
		indexed[t.Filename] = true
	}

	var total uint64
	fmt.Fprintf(w, "📚 %d file(s) in %s:\n\n", len(entries), e.store.Dir())
	for _, en := range entries {
		mark := " "
		if indexed[en.Name] {
			mark = "●"
		}
		fmt.Fprintf(w, "%s %-40s %10s  %s\n", mark, en.Name,
			humanize.Bytes(uint64(en.Size)), humanize.RelTime(en.ModTime, now, "ago", "from now"))
		total += uint64(en.Size)
	}
	fmt.Fprintf(w, "\n%s total, %d indexed (●)\n", humanize.Bytes(total), len(indexed))
	return nil
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <filename>",
		Short: "Remove a file from the dataset and the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if remote {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				if err := newClient(cfg).DeleteFile(cmd.Context(), name); err != nil {
					return fmt.Errorf("failed to delete %s: %w", name, err)
				}
			} else {
				e, err := openEnv(cmd)
				if err != nil {
					return err
				}
				defer e.Close()
				if err := deleteFile(e, name); err != nil {
					return err
				}
			}
			fmt.Printf("✅ Deleted %s\n", name)
			return nil
		},
	}
}

// deleteFile drops the index entry (if any) and then the file itself.
func deleteFile(e *env, name string) error {
	track, err := e.svc.GetTrackByFilename(name)
	switch {
	case err == nil:
		if err := e.svc.DeleteTrack(track.ID); err != nil {
			return fmt.Errorf("failed to delete track: %w", err)
		}
	case !errors.Is(err, audiosearch.ErrTrackNotFound):
		return err
	}

	if err := e.store.Remove(name); err != nil {
		if errors.Is(err, dataset.ErrFileNotFound) && track != nil {
			return nil
		}
		return err
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			var m models.HealthMetrics
			if remote {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				got, err := newClient(cfg).Metrics(cmd.Context())
				if err != nil {
					return err
				}
				m = *got
			} else {
				e, err := openEnv(cmd)
				if err != nil {
					return err
				}
				defer e.Close()
				stats, err := e.svc.Stats()
				if err != nil {
					return err
				}
				files, err := e.store.List()
				if err != nil {
					return err
				}
				m = models.HealthMetrics{
					Status:            "ok",
					TotalTracks:       stats.TrackCount,
					TotalFingerprints: stats.FingerprintCount,
					DatasetFiles:      len(files),
				}
			}

			fmt.Printf("Dataset files: %s\n", humanize.Comma(int64(m.DatasetFiles)))
			fmt.Printf("Indexed:       %s\n", humanize.Comma(int64(m.TotalTracks)))
			fmt.Printf("Fingerprints:  %s\n", humanize.Comma(m.TotalFingerprints))
			return nil
		},
	}
}

func newBrowseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Open the music browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			// The TUI owns the terminal.
			logger.SetOutput(io.Discard)

			var model tui.MusicModel
			if remote {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				c := newClient(cfg)
				model = tui.NewMusicModel(c, tui.MatcherFunc(c.Query), c.PlayURL)
			} else {
				e, err := openEnv(cmd)
				if err != nil {
					return err
				}
				defer e.Close()
				model = tui.NewMusicModel(e.store, tui.MatcherFunc(e.svc.Match), browser.PlayURL)
			}

			_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
}

func newAlbumsCmd() *cobra.Command {
	var perPage int
	cmd := &cobra.Command{
		Use:   "albums",
		Short: "Show the album grid",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := tea.NewProgram(tui.NewAlbumModel(perPage), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
	cmd.Flags().IntVar(&perPage, "per-page", 6, "Albums per page")
	return cmd
}

func newSpectrogramCmd() *cobra.Command {
	var (
		output        string
		width, height int
	)
	cmd := &cobra.Command{
		Use:   "spectrogram <audio_file>",
		Short: "Render a spectrogram PNG of an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if output == "" {
				base := filepath.Base(args[0])
				output = base[:len(base)-len(filepath.Ext(base))] + ".png"
			}
			if err := renderSpectrogram(cmd.Context(), args[0], output, cfg.TempDir, cfg.SampleRate, width, height); err != nil {
				return err
			}
			fmt.Printf("✅ Spectrogram written to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output PNG (default: <input>.png)")
	cmd.Flags().IntVar(&width, "width", fingerprint.DefaultImageWidth, "Image width")
	cmd.Flags().IntVar(&height, "height", fingerprint.DefaultImageHeight, "Image height")
	return cmd
}

func renderSpectrogram(ctx context.Context, in, out, tempDir string, sampleRate, width, height int) error {
	samples, err := audio.LoadMono(ctx, in, tempDir, sampleRate)
	if err != nil {
		return err
	}
	img, err := fingerprint.RenderSpectrogram(samples, sampleRate, width, height)
	if err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := fingerprint.WritePNG(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
