package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/rv32sim/rv32sim/isa"
	"github.com/rv32sim/rv32sim/loader"
)

func decodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     "decode and disassemble instruction words",
		ArgsUsage: "<word>...",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return cli.Exit("decode: no instruction words given", exitError)
			}
			failed := 0
			for _, arg := range c.Args().Slice() {
				word, err := loader.ParseWord(arg)
				if err != nil {
					fmt.Fprintf(c.App.ErrWriter, "%s: %v\n", arg, err)
					failed++
					continue
				}
				ins, err := isa.Decode(word)
				if err != nil {
					fmt.Fprintf(c.App.Writer, "0x%08x  %v\n", word, err)
					failed++
					continue
				}
				fmt.Fprintf(c.App.Writer, "0x%08x  %v %-8v %s\n", word, ins.Format, ins.Opcode, ins)
			}
			if failed > 0 {
				return cli.Exit(fmt.Sprintf("decode: %d of %d words failed", failed, c.NArg()), exitError)
			}
			return nil
		},
	}
}
