// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xseedapp/xseed/internal/metafile"
)

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <a.torrent> <b.torrent>",
		Short: "Compare two .torrent files' file trees",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := metafile.DecodeFile(args[0])
			if err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}
			b, err := metafile.DecodeFile(args[1])
			if err != nil {
				return fmt.Errorf("decode %s: %w", args[1], err)
			}

			d := metafile.Diff(a, b)
			for _, f := range d.OnlyInA {
				cmd.Printf("- %s (%d bytes)\n", f.JoinedPath(), f.Length)
			}
			for _, f := range d.OnlyInB {
				cmd.Printf("+ %s (%d bytes)\n", f.JoinedPath(), f.Length)
			}
			for _, m := range d.SizeDiff {
				cmd.Printf("~ %s (%d -> %d bytes)\n", m.Path, m.LengthA, m.LengthB)
			}
			if len(d.OnlyInA) == 0 && len(d.OnlyInB) == 0 && len(d.SizeDiff) == 0 {
				cmd.Println("file trees are identical")
			}
			return nil
		},
	}
}

func newTreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree <torrent>",
		Short: "Print a .torrent file's file tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := metafile.DecodeFile(args[0])
			if err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}
			cmd.Print(m.Tree())
			return nil
		},
	}
}
