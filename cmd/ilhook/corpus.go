package main

import (
	"flag"
	"fmt"

	"github.com/chazu/ilhook/body"
	"github.com/chazu/ilhook/config"
	"github.com/chazu/ilhook/store"
)

func openStore(flagPath string, cfg *config.Config) (*store.Store, error) {
	path := flagPath
	if path == "" {
		path = cfg.StorePath()
	}
	if path == "" {
		var err error
		if path, err = store.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return store.Open(path)
}

// handleImportCommand processes the `ilhook import` subcommand.
func handleImportCommand(args []string, cfg *config.Config) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	input := addInputFlags(fs)
	dbPath := fs.String("db", "", "Corpus database (default from ilhook.toml or ~/.ilhook/corpus.db)")
	fs.Parse(args)

	c, err := input.load()
	if err != nil {
		return err
	}
	s, err := openStore(*dbPath, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ids, err := s.Import(c)
	if err != nil {
		return err
	}
	for i, id := range ids {
		fmt.Printf("%s  %s\n", id, c.Methods[i])
	}
	return nil
}

// handleListCommand processes the `ilhook list` subcommand.
func handleListCommand(args []string, cfg *config.Config) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	dbPath := fs.String("db", "", "Corpus database")
	fs.Parse(args)

	s, err := openStore(*dbPath, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	recs, err := s.List()
	if err != nil {
		return err
	}
	for _, rec := range recs {
		parent := "-"
		if rec.Parent != "" {
			parent = rec.Parent
		}
		fmt.Printf("%s  %-40s  il=%-5d eh=%-4d parent=%s\n",
			rec.ID, rec.Method, len(rec.Method.IL), len(rec.Method.EH), parent)
	}
	fmt.Printf("%d records\n", len(recs))
	return nil
}

// handleReplayCommand processes the `ilhook replay` subcommand: every
// original in the corpus is rewritten and the result stored as its child.
func handleReplayCommand(args []string, cfg *config.Config) error {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	dbPath := fs.String("db", "", "Corpus database")
	nops := fs.Int("nops", cfg.Rewrite.Nops, "Number of nops to prepend")
	strict := fs.Bool("strict", cfg.Rewrite.StrictOffsets, "Fail instead of falling back on missing clause boundaries")
	fs.Parse(args)

	s, err := openStore(*dbPath, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	originals, err := s.Originals()
	if err != nil {
		return err
	}
	r := &body.Rewriter{Strict: *strict}
	pass := body.PrependNops(*nops)
	saved, failed := 0, 0
	for _, rec := range originals {
		res, err := r.Rewrite(rec.Method, pass)
		if err != nil {
			fmt.Printf("%s  %s: %v\n", rec.ID, rec.Method, err)
			failed++
			continue
		}
		child := &store.Record{Module: rec.Module, Parent: rec.ID, Method: res.Method}
		if err := s.Save(child); err != nil {
			return err
		}
		saved++
		fmt.Printf("%s  -> %s (%s, %d fallbacks)\n", rec.ID, child.ID, res.Report.Format, len(res.Report.Fallbacks))
	}
	fmt.Printf("replayed %d methods, %d failed\n", saved, failed)
	return nil
}
