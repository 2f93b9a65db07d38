package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mogaika/assetrename/config"
	"github.com/mogaika/assetrename/format"
	"github.com/mogaika/assetrename/session"
	"github.com/mogaika/assetrename/status"
	"github.com/mogaika/assetrename/utils"
)

type SubPartInfo struct {
	Index    int    `yaml:"index"`
	Name     string `yaml:"name,omitempty"`
	Material string `yaml:"material"`
	Indices  int    `yaml:"indices"`
	Index32  bool   `yaml:"index32,omitempty"`
	Opaque   int    `yaml:"opaque_chunks,omitempty"`
}

type BoneInfo struct {
	Handle      uint16     `yaml:"handle"`
	Name        string     `yaml:"name"`
	Parent      *uint16    `yaml:"parent,omitempty"`
	Position    [3]float32 `yaml:"position,flow"`
	Orientation [4]float32 `yaml:"orientation,flow"`
	Rotation    [3]float32 `yaml:"rotation_deg,flow"`
	Scale       []float32  `yaml:"scale,flow,omitempty"`
}

type AnimationInfo struct {
	Name   string   `yaml:"name"`
	Length float32  `yaml:"length"`
	Tracks []uint16 `yaml:"tracks,flow"`
}

type Info struct {
	Path         string          `yaml:"path"`
	Kind         string          `yaml:"kind"`
	Version      string          `yaml:"version"`
	Endian       string          `yaml:"endian"`
	OpaqueChunks int             `yaml:"opaque_chunks"`
	Animated     *bool           `yaml:"animated,omitempty"`
	SkeletonLink string          `yaml:"skeleton_link,omitempty"`
	SubParts     []SubPartInfo   `yaml:"sub_parts,omitempty"`
	BlendMode    *uint16         `yaml:"blend_mode,omitempty"`
	Bones        []BoneInfo      `yaml:"bones,omitempty"`
	Animations   []AnimationInfo `yaml:"animations,omitempty"`
}

func describe(s *session.Session) *Info {
	info := &Info{
		Path:         s.Path,
		Kind:         s.Kind().String(),
		Version:      s.Revision.Label,
		Endian:       format.OrderName(s.Order),
		OpaqueChunks: s.Model.OpaqueChunks(),
	}

	if m := s.Mesh(); m != nil {
		animated := m.Animated
		info.Animated = &animated
		info.SkeletonLink, _ = m.SkeletonLink()
		for i, sp := range m.SubParts {
			info.SubParts = append(info.SubParts, SubPartInfo{
				Index:    i,
				Name:     m.SubPartName(i),
				Material: sp.Material,
				Indices:  len(sp.Indices),
				Index32:  sp.Indexes32,
				Opaque:   len(sp.Children),
			})
		}
	}

	if sk := s.Skeleton(); sk != nil {
		if mode, ok := sk.BlendMode(); ok {
			info.BlendMode = &mode
		}
		for _, b := range sk.Bones() {
			bi := BoneInfo{
				Handle:      b.Handle(),
				Name:        b.Name(),
				Position:    b.Position,
				Orientation: [4]float32{b.Orientation.X(), b.Orientation.Y(), b.Orientation.Z(), b.Orientation.W},
				Rotation:    utils.RadiansToDegreesV3(utils.QuatToEuler(b.Orientation)),
			}
			if p, ok := b.Parent(); ok {
				bi.Parent = &p
			}
			if b.HasScale {
				bi.Scale = b.Scale[:]
			}
			info.Bones = append(info.Bones, bi)
		}
		for _, name := range sk.AnimationNames() {
			a, _ := sk.Animation(name)
			ai := AnimationInfo{Name: name, Length: a.Length, Tracks: make([]uint16, 0)}
			for _, t := range a.Tracks() {
				ai.Tracks = append(ai.Tracks, t.BoneHandle)
			}
			info.Animations = append(info.Animations, ai)
		}
	}
	return info
}

func inspect(path string, asYaml bool, w io.Writer) error {
	s, err := session.Load(path, session.LoadOptions{})
	if err != nil {
		return err
	}
	if !asYaml {
		fmt.Fprintf(w, "%s: %v %s %s endian\n", path, s.Kind(), s.Revision.Label, format.OrderName(s.Order))
		fmt.Fprint(w, utils.SDump(s.Model))
		return nil
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(describe(s)); err != nil {
		return err
	}
	return enc.Close()
}

func main() {
	var asYaml, verbose bool
	var encoding string
	flag.BoolVar(&asYaml, "yaml", false, "Print a yaml summary instead of a full dump")
	flag.StringVar(&encoding, "encoding", config.DefaultEncoding, "Name string encoding")
	flag.BoolVar(&verbose, "v", false, "Debug output")
	flag.Parse()

	if verbose {
		status.SetLevel(status.DEBUG)
	}
	if err := config.SetEncoding(encoding); err != nil {
		status.Errorf("%v", err)
		os.Exit(2)
	}
	if flag.NArg() == 0 {
		status.Warnf("no files given")
		flag.Usage()
		os.Exit(2)
	}

	failed := 0
	for i, path := range flag.Args() {
		status.Progress(float32(i)/float32(flag.NArg()), "inspecting %s", path)
		if err := inspect(path, asYaml, os.Stdout); err != nil {
			status.Errorf("%s: %v", path, err)
			failed++
		}
	}
	if failed != 0 {
		status.Warnf("%d of %d files could not be read", failed, flag.NArg())
		os.Exit(1)
	}
}
