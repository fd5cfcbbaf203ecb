package main

import (
	"bytes"
	"encoding/base64"
	"flag"
	"fmt"

	"github.com/chazu/ilhook/body"
	"github.com/chazu/ilhook/config"
)

// handleDisCommand processes the `ilhook dis` subcommand.
func handleDisCommand(args []string) error {
	fs := flag.NewFlagSet("dis", flag.ExitOnError)
	input := addInputFlags(fs)
	fs.Parse(args)

	c, err := input.load()
	if err != nil {
		return err
	}
	for i, m := range c.Methods {
		if i > 0 {
			fmt.Println()
		}
		listing, err := body.Listing(m)
		if err != nil {
			return err
		}
		fmt.Print(listing)
	}
	return nil
}

// handleRoundTripCommand processes the `ilhook roundtrip` subcommand. It
// fails if any method does not reproduce its input bytes.
func handleRoundTripCommand(args []string) error {
	fs := flag.NewFlagSet("roundtrip", flag.ExitOnError)
	input := addInputFlags(fs)
	fs.Parse(args)

	c, err := input.load()
	if err != nil {
		return err
	}
	r := &body.Rewriter{Strict: true}
	bad := 0
	for _, m := range c.Methods {
		res, err := r.Rewrite(m, body.Identity)
		switch {
		case err != nil:
			fmt.Printf("FAIL      %s: %v\n", m, err)
			bad++
		case !bytes.Equal(res.Method.IL, m.IL) || !bytes.Equal(res.Method.EH, m.EH):
			fmt.Printf("MISMATCH  %s\n", m)
			bad++
		default:
			fmt.Printf("ok        %s (%d code bytes, %d section bytes)\n", m, len(m.IL), len(m.EH))
		}
	}
	if bad > 0 {
		return fmt.Errorf("%d of %d methods did not round-trip", bad, len(c.Methods))
	}
	return nil
}

// handleInjectCommand processes the `ilhook inject` subcommand.
func handleInjectCommand(args []string, cfg *config.Config) error {
	fs := flag.NewFlagSet("inject", flag.ExitOnError)
	input := addInputFlags(fs)
	nops := fs.Int("nops", cfg.Rewrite.Nops, "Number of nops to prepend")
	strict := fs.Bool("strict", cfg.Rewrite.StrictOffsets, "Fail instead of falling back on missing clause boundaries")
	out := fs.String("out", "", "Write the rewritten capture to this CBOR file")
	fs.Parse(args)

	c, err := input.load()
	if err != nil {
		return err
	}
	r := &body.Rewriter{Strict: *strict}
	results, failed := r.RewriteAll(c.Methods, body.PrependNops(*nops))

	rewritten := &body.Capture{Module: c.Module}
	for _, res := range results {
		m := res.Method
		rewritten.Methods = append(rewritten.Methods, m)
		if !res.Rewritten {
			fmt.Printf("%s: passed through\n", m)
			continue
		}
		fmt.Printf("%s: %s section\n", m, res.Report.Format)
		fmt.Printf("  il: %s\n", base64.StdEncoding.EncodeToString(m.IL))
		if len(m.EH) > 0 {
			fmt.Printf("  eh: %s\n", base64.StdEncoding.EncodeToString(m.EH))
		}
		for _, fb := range res.Report.Fallbacks {
			fmt.Printf("  warning: %s\n", fb)
		}
	}

	if *out != "" {
		if err := writeCapture(*out, rewritten); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d methods passed through unchanged", failed, len(c.Methods))
	}
	return nil
}
