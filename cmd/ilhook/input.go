package main

import (
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/chazu/ilhook/body"
)

// inputFlags selects where method bodies come from: a CBOR capture file or
// a single body given inline as base64.
type inputFlags struct {
	in    string
	il    string
	eh    string
	token uint
	name  string
}

func addInputFlags(fs *flag.FlagSet) *inputFlags {
	f := &inputFlags{}
	fs.StringVar(&f.in, "in", "", "CBOR capture file")
	fs.StringVar(&f.il, "il", "", "Base64 IL code of a single method")
	fs.StringVar(&f.eh, "eh", "", "Base64 exception section of a single method")
	fs.UintVar(&f.token, "token", 0x06000001, "Method token for -il input")
	fs.StringVar(&f.name, "name", "", "Method name for -il input")
	return f
}

func (f *inputFlags) load() (*body.Capture, error) {
	switch {
	case f.in != "" && f.il != "":
		return nil, errors.New("use either -in or -il, not both")
	case f.in != "":
		data, err := os.ReadFile(f.in)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", f.in, err)
		}
		return body.UnmarshalCapture(data)
	case f.il != "":
		il, err := base64.StdEncoding.DecodeString(f.il)
		if err != nil {
			return nil, fmt.Errorf("decoding -il: %w", err)
		}
		var section []byte
		if f.eh != "" {
			if section, err = base64.StdEncoding.DecodeString(f.eh); err != nil {
				return nil, fmt.Errorf("decoding -eh: %w", err)
			}
		}
		m := &body.Method{Token: uint32(f.token), Name: f.name, IL: il, EH: section}
		return &body.Capture{Methods: []*body.Method{m}}, nil
	}
	return nil, errors.New("no input: give -in capture.cbor or -il base64")
}

func writeCapture(path string, c *body.Capture) error {
	data, err := body.MarshalCapture(c)
	if err != nil {
		return fmt.Errorf("encoding capture: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return nil
}
