/*
Copyright © 2018-2023 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"os"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/blacktop/asmremap/pkg/classfile"
	"github.com/blacktop/asmremap/pkg/hierarchy"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(typesCmd)

	typesCmd.Flags().StringP("output", "o", "", "Output YAML file (default is stdout)")
	typesCmd.Flags().String("prefix", "", "Only include classes under this internal package prefix")
	typesCmd.MarkFlagFilename("output", "yaml", "yml")
	viper.BindPFlag("types.output", typesCmd.Flags().Lookup("output"))
	viper.BindPFlag("types.prefix", typesCmd.Flags().Lookup("prefix"))
}

// typesCmd represents the types command
var typesCmd = &cobra.Command{
	Use:   "types <JAR|DIR>...",
	Short: "Extract a YAML type table from compiled classes",
	Example: heredoc.Doc(`
		# Extract the hierarchy of the game's classes
		❯ asmremap types client.jar --prefix net/minecraft/ -o types.yaml

		# Use it when remapping
		❯ asmremap remap --types types.yaml ...`),
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		output := viper.GetString("types.output")
		prefix := viper.GetString("types.prefix")

		cp, err := classfile.Open(args...)
		if err != nil {
			return err
		}
		defer cp.Close()

		all, err := cp.Types()
		if err != nil {
			return err
		}

		table := all
		if prefix != "" {
			table = hierarchy.NewMapProvider()
			for _, t := range all.Types() {
				if strings.HasPrefix(t.Name, prefix) {
					table.Add(t)
				}
			}
		}

		if output == "" {
			return table.WriteTypes(os.Stdout)
		}

		f, err := os.Create(output)
		if err != nil {
			return errors.Wrapf(err, "failed to create %s", output)
		}
		defer f.Close()

		if err := table.WriteTypes(f); err != nil {
			return err
		}

		fi, err := f.Stat()
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"types": table.Len(),
			"size":  humanize.Bytes(uint64(fi.Size())),
		}).Infof("Wrote %s", output)

		return nil
	},
}
