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
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/alecthomas/chroma/v2/quick"
	"github.com/apex/log"
	"github.com/blacktop/asmremap/internal/colors"
	"github.com/blacktop/asmremap/internal/commands/remap"
	"github.com/blacktop/asmremap/internal/config"
	"github.com/blacktop/asmremap/internal/utils"
	engine "github.com/blacktop/asmremap/pkg/remap"
	"github.com/caarlos0/ctrlc"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(remapCmd)

	remapCmd.Flags().StringP("package", "p", "", "Package the remapped dumps are placed in")
	remapCmd.Flags().StringP("input", "i", "", "Class file, ASMifier dump or a directory of them")
	remapCmd.Flags().StringP("output", "o", "", "Output file (file input) or directory (directory input)")
	remapCmd.Flags().String("maputil", "", "Fully qualified class declaring the mapping function")
	remapCmd.Flags().String("mapmethod", engine.DefaultMapMethod, "Name of the mapping function")
	remapCmd.Flags().String("prefix", engine.DefaultPrefix, "Internal package prefix of the mapped classes")
	remapCmd.Flags().StringSlice("classpath", []string{}, "Jars/directories of classes used to resolve inherited members")
	remapCmd.Flags().String("types", "", "YAML type table used to resolve inherited members")
	remapCmd.Flags().IntP("workers", "w", runtime.NumCPU(), "Number of files remapped concurrently")
	remapCmd.Flags().String("disassembler", "", "Command that prints the ASMifier dump of a class file")
	remapCmd.Flags().BoolP("diff", "d", false, "Print a diff instead of writing output files")
	remapCmd.MarkFlagRequired("package")
	remapCmd.MarkFlagRequired("input")
	remapCmd.MarkFlagRequired("maputil")
	remapCmd.MarkFlagFilename("types", "yaml", "yml")
	viper.BindPFlag("remap.package", remapCmd.Flags().Lookup("package"))
	viper.BindPFlag("remap.input", remapCmd.Flags().Lookup("input"))
	viper.BindPFlag("remap.output", remapCmd.Flags().Lookup("output"))
	viper.BindPFlag("remap.maputil", remapCmd.Flags().Lookup("maputil"))
	viper.BindPFlag("remap.mapmethod", remapCmd.Flags().Lookup("mapmethod"))
	viper.BindPFlag("remap.prefix", remapCmd.Flags().Lookup("prefix"))
	viper.BindPFlag("remap.classpath", remapCmd.Flags().Lookup("classpath"))
	viper.BindPFlag("remap.types", remapCmd.Flags().Lookup("types"))
	viper.BindPFlag("remap.workers", remapCmd.Flags().Lookup("workers"))
	viper.BindPFlag("remap.disassembler", remapCmd.Flags().Lookup("disassembler"))
	viper.BindPFlag("remap.diff", remapCmd.Flags().Lookup("diff"))
}

// remapCmd represents the remap command
var remapCmd = &cobra.Command{
	Use:   "remap",
	Short: "Rewrite ASMifier dumps to resolve names through a mapping function",
	Example: heredoc.Doc(`
		# Remap a single dump
		❯ asmremap remap -m yarn-1.18+build.1-v2.jar -p com.example.dump --maputil com.example.MapUtil \
		    -i EntityDump.java -o out/EntityDump.java

		# Disassemble and remap a directory of classes
		❯ asmremap remap -m yarn-1.18+build.1-v2.jar -p com.example.dump --maputil com.example.MapUtil \
		    --disassembler "java -cp asm.jar:asm-util.jar org.objectweb.asm.util.ASMifier" \
		    --classpath client.jar -i classes/ -o out/

		# Preview the changes
		❯ asmremap remap -m yarn-1.18+build.1-v2.jar -p com.example.dump --maputil com.example.MapUtil \
		    -i EntityDump.java --diff`),
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := config.LoadConfig()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		idx, err := remap.LoadIndices(ctx, conf)
		if err != nil {
			return err
		}

		rconf := &remap.Config{
			Package:      viper.GetString("remap.package"),
			MapUtil:      viper.GetString("remap.maputil"),
			MapMethod:    viper.GetString("remap.mapmethod"),
			Prefix:       viper.GetString("remap.prefix"),
			Input:        viper.GetString("remap.input"),
			Output:       viper.GetString("remap.output"),
			Classpath:    viper.GetStringSlice("remap.classpath"),
			Types:        viper.GetString("remap.types"),
			Workers:      viper.GetInt("remap.workers"),
			Disassembler: viper.GetString("remap.disassembler"),
			Diff:         viper.GetBool("remap.diff"),
			Progress:     !Verbose && !viper.GetBool("remap.diff"),
		}

		var sum *remap.Summary
		if err := ctrlc.Default.Run(ctx, func() error {
			sum, err = remap.Run(ctx, rconf, idx)
			return err
		}); err != nil {
			if errors.As(err, &ctrlc.ErrorCtrlC{}) {
				cancel()
				log.Warn("Exiting...")
				return nil
			}
			return err
		}

		for _, diff := range sum.Diffs {
			if colors.Enabled() {
				if err := quick.Highlight(os.Stdout, diff, "diff", "terminal256", "nord"); err != nil {
					return err
				}
			} else {
				fmt.Print(diff)
			}
		}

		utils.Indent(log.WithFields(log.Fields{
			"methods":       sum.Stats.Methods,
			"fields":        sum.Stats.Fields,
			"classes":       sum.Stats.Classes,
			"inner_classes": sum.Stats.InnerClasses,
			"unresolved":    sum.Stats.Unresolved,
		}).Info, 2)("Rewrote references")

		plural := "s"
		if sum.Files == 1 {
			plural = ""
		}
		fmt.Printf("Successfully remapped %s file%s (%s) in %s",
			colors.Count(sum.Files), plural, humanize.Bytes(uint64(sum.Bytes)), sum.Duration.Round(time.Millisecond))
		if sum.Skipped > 0 {
			fmt.Printf(", %s already remapped", colors.Skipped(sum.Skipped))
		}
		if sum.Failed > 0 {
			fmt.Printf(", %s failed", colors.Failed(sum.Failed))
		}
		fmt.Println()

		if sum.Failed > 0 {
			return fmt.Errorf("failed to remap %d file(s)", sum.Failed)
		}

		return nil
	},
}
