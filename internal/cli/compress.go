package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trackgrid/trackgrid/internal/gridcodec"
)

var compressCmd = &cobra.Command{
	Use:   "compress [raw]",
	Short: "Run-length encode a raw grid row",
	Long: `Run-length encode a raw character sequence the way trackgrid compresses
every grid row before writing it to a tracker file.

If [raw] is omitted, the raw string is read from stdin (trailing newline
trimmed).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCompress,
}

var decompressCmd = &cobra.Command{
	Use:   "decompress [rle]",
	Short: "Expand a run-length-encoded grid row",
	Long: `Expand a run-length-encoded string back into its raw character
sequence, the inverse of compress.

If [rle] is omitted, the RLE string is read from stdin (trailing newline
trimmed).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDecompress,
}

func init() {
	rootCmd.AddCommand(compressCmd)
	rootCmd.AddCommand(decompressCmd)
}

func readArgOrStdin(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runCompress(cmd *cobra.Command, args []string) error {
	raw, err := readArgOrStdin(cmd, args)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), gridcodec.Compress(raw))
	return nil
}

func runDecompress(cmd *cobra.Command, args []string) error {
	rle, err := readArgOrStdin(cmd, args)
	if err != nil {
		return err
	}
	raw, err := gridcodec.Decompress(rle)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), raw)
	return nil
}
