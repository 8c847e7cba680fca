package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var submitDataDir string

var submitCmd = &cobra.Command{
	Use:   "submit <file.pdf> [file.pdf...]",
	Short: "Submit report files for processing",
	Long: `Submit copies radiology report PDFs into the daemon's incoming
directory, where the file watcher picks them up. Name collisions get a
numeric suffix so no queued file is overwritten.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringVarP(&submitDataDir, "data-dir", "d", "./data", "daemon data directory")
	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	incoming := filepath.Join(submitDataDir, "incoming")
	if info, err := os.Stat(incoming); err != nil || !info.IsDir() {
		return fmt.Errorf("incoming directory not found: %s (is the daemon running with this data dir?)", incoming)
	}

	submitted := 0
	for _, src := range args {
		if !strings.EqualFold(filepath.Ext(src), ".pdf") {
			PrintError(fmt.Sprintf("%s: not a PDF file, skipping", src), false)
			continue
		}
		dest, err := copyIntoIncoming(src, incoming)
		if err != nil {
			PrintError(fmt.Sprintf("%s: %v", src, err), false)
			continue
		}
		fmt.Printf("submitted %s -> %s\n", src, dest)
		submitted++
	}

	if submitted == 0 {
		return fmt.Errorf("no files submitted")
	}
	PrintVerbose("submitted %d of %d files", submitted, len(args))
	return nil
}

// copyIntoIncoming copies src into the incoming directory under a
// collision-free name and returns the destination path.
func copyIntoIncoming(src, incoming string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	name := filepath.Base(src)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	ext := filepath.Ext(name)

	for i := 0; ; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s_%d%s", stem, i, ext)
		}
		dest := filepath.Join(incoming, candidate)

		out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", err
		}

		if _, err := io.Copy(out, in); err != nil {
			out.Close()
			os.Remove(dest)
			return "", err
		}
		if err := out.Close(); err != nil {
			return "", err
		}
		return dest, nil
	}
}
