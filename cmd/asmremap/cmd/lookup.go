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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/blacktop/asmremap/internal/colors"
	"github.com/blacktop/asmremap/internal/commands/remap"
	"github.com/blacktop/asmremap/internal/config"
	"github.com/blacktop/asmremap/pkg/descriptor"
	"github.com/blacktop/asmremap/pkg/mappings"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(lookupCmd)

	lookupCmd.Flags().Bool("official", false, "Look up by official (obfuscated) names")
	lookupCmd.Flags().Bool("json", false, "Output as JSON")
	viper.BindPFlag("lookup.official", lookupCmd.Flags().Lookup("official"))
	viper.BindPFlag("lookup.json", lookupCmd.Flags().Lookup("json"))
}

// lookupCmd represents the lookup command
var lookupCmd = &cobra.Command{
	Use:   "lookup <CLASS> [MEMBER] [DESCRIPTOR]",
	Short: "Look up a class, method or field in the mappings",
	Example: heredoc.Doc(`
		# Look up a class by its named name
		❯ asmremap lookup -m yarn-1.18+build.1-v2.jar net.minecraft.entity.Entity

		# Look up a method
		❯ asmremap lookup -m yarn-1.18+build.1-v2.jar net/minecraft/entity/Entity isTeammate "(Lnet/minecraft/entity/Entity;)Z"

		# Look up a field by its official name
		❯ asmremap lookup -m yarn-1.18+build.1-v2.jar --official bsr aj`),
	Args:          cobra.RangeArgs(1, 3),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := config.LoadConfig()
		if err != nil {
			return err
		}
		idx, err := remap.LoadIndices(cmd.Context(), conf)
		if err != nil {
			return err
		}

		index := idx.Intermediate
		if viper.GetBool("lookup.official") {
			index = idx.Final
		}

		var result any
		owner := descriptor.InternalName(args[0])
		switch len(args) {
		case 1:
			c, ok := index.Class(owner)
			if !ok {
				return fmt.Errorf("class %s not found in %s mappings", args[0], index.Pivot().Name())
			}
			result = c
		case 2:
			f, ok := index.Field(owner, args[1])
			if !ok {
				return fmt.Errorf("field %s.%s not found in %s mappings", args[0], args[1], index.Pivot().Name())
			}
			result = f
		case 3:
			if _, err := descriptor.Parse(args[2]); err != nil {
				return err
			}
			m, ok := index.Method(owner, args[1], args[2])
			if !ok {
				return fmt.Errorf("method %s.%s%s not found in %s mappings", args[0], args[1], args[2], index.Pivot().Name())
			}
			result = m
		}

		if viper.GetBool("lookup.json") {
			dat, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal lookup result: %v", err)
			}
			fmt.Println(string(dat))
			return nil
		}

		switch r := result.(type) {
		case mappings.ClassMapping:
			printNames("class", r.Official, r.Intermediate, r.Named, display(idx.Final, r))
		case mappings.FieldMapping:
			fmt.Printf("%s %s\n", colors.Kind("owner"), r.Owner.Named)
			printNames("field", r.Official, r.Intermediate, r.Named, "")
			fmt.Printf("  %-12s %s\n", colors.Namespace("descriptor"), r.Descriptor)
		case mappings.MethodMapping:
			fmt.Printf("%s %s\n", colors.Kind("owner"), r.Owner.Named)
			printNames("method", r.Official, r.Intermediate, r.Named, "")
			fmt.Printf("  %-12s %s\n", colors.Namespace("signature"), r.Signature)
			fmt.Printf("  %-12s %s\n", colors.Namespace("obfuscated"), r.OfficialSignature)
		}

		return nil
	},
}

// display returns the readable name published for c, if any
func display(final *mappings.Index, c mappings.ClassMapping) string {
	if final == nil || final.Pivot() != mappings.OfficialPivot {
		return ""
	}
	fc, ok := final.Class(c.Official)
	if !ok {
		return ""
	}
	return fc.Named
}

func printNames(kind, official, intermediate, named, final string) {
	fmt.Println(colors.Kind(kind))
	fmt.Printf("  %-12s %s\n", colors.Namespace("official"), colors.Name(official))
	fmt.Printf("  %-12s %s\n", colors.Namespace("intermediate"), colors.Name(intermediate))
	fmt.Printf("  %-12s %s\n", colors.Namespace("named"), colors.Name(named))
	if final != "" && !strings.EqualFold(final, named) {
		fmt.Printf("  %-12s %s\n", colors.Namespace("final"), colors.Name(final))
	}
}
