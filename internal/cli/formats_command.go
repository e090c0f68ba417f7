package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mixdeck.dev/internal/audio"
)

func newFormatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "formats [file...]",
		Short: "List supported audio formats and outputs",
		Long: `List the decoders and audio outputs this build supports, the system player
the system_command engine would use, and the engine "auto" resolves to.

With file arguments, report which decoder each file would use. Detection
looks at the file contents first and falls back to the extension.`,
		RunE: runFormats,
	}
}

func runFormats(cmd *cobra.Command, args []string) error {
	cli, err := cliFromContext(cmd.Context())
	if err != nil {
		return err
	}

	registry := audio.NewDefaultRegistry()

	outputs := audio.AvailableOutputs()
	if len(outputs) == 0 {
		outputs = []string{"none"}
	}

	player := cli.engineFactory.SystemCommand()
	if player == "" {
		player = "none"
	}

	cmd.Printf("decoders: %s\n", strings.Join(registry.GetSupportedFormats(), ", "))
	cmd.Printf("outputs:  %s\n", strings.Join(outputs, ", "))
	cmd.Printf("players:  %s\n", player)
	cmd.Printf("auto:     %s\n", cli.engineFactory.AutoEngine())

	assets := cli.fsFactory.Assets()
	var failed int
	for _, path := range args {
		f, err := assets.Open(path)
		if err != nil {
			cmd.PrintErrf("%s: %v\n", path, err)
			failed++
			continue
		}
		decoder := registry.DetectFormatWithContent(path, f)
		f.Close()

		if decoder == nil {
			cmd.Printf("%s: unsupported\n", path)
			failed++
			continue
		}
		cmd.Printf("%s: %s\n", path, decoder.FormatName())
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files cannot be decoded", failed, len(args))
	}
	return nil
}
