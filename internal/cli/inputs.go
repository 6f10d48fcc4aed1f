package cli

import (
	"skillmatch/internal/common"
	"skillmatch/internal/inputs"
	"skillmatch/internal/types"

	"github.com/spf13/cobra"
)

// groupInput is what the command line supplied for one input group.
// At most one field is set.
type groupInput struct {
	PDF      string
	Text     string
	TextFile string
}

// watchPath is the file backing the input, if any
func (in groupInput) watchPath() string {
	if in.PDF != "" {
		return in.PDF
	}
	return in.TextFile
}

type inputFlags struct {
	Resume groupInput
	JD     groupInput
}

func (f *inputFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.Resume.PDF, "resume-pdf", "", "Resume as a PDF file")
	flags.StringVar(&f.Resume.Text, "resume-text", "", "Resume as pasted text")
	flags.StringVar(&f.Resume.TextFile, "resume-text-file", "", "Resume as a plain text file")
	flags.StringVar(&f.JD.PDF, "jd-pdf", "", "Job description as a PDF file")
	flags.StringVar(&f.JD.Text, "jd-text", "", "Job description as pasted text")
	flags.StringVar(&f.JD.TextFile, "jd-text-file", "", "Job description as a plain text file")

	cmd.MarkFlagsMutuallyExclusive("resume-pdf", "resume-text", "resume-text-file")
	cmd.MarkFlagsMutuallyExclusive("jd-pdf", "jd-text", "jd-text-file")
}

func (f *inputFlags) get(id types.GroupID) groupInput {
	if id == types.GroupResume {
		return f.Resume
	}
	return f.JD
}

// watchedFiles maps each file-backed group to its path
func (f *inputFlags) watchedFiles() map[types.GroupID]string {
	files := make(map[types.GroupID]string)
	for _, id := range []types.GroupID{types.GroupResume, types.GroupJobDescription} {
		if path := f.get(id).watchPath(); path != "" {
			files[id] = path
		}
	}
	return files
}

// inputLoader copies command line inputs into controller groups
type inputLoader struct {
	files   *common.FileProcessor
	maxSize int64
}

// load fills g from in. A group with nothing supplied is left empty so that
// submission reports it as missing.
func (l inputLoader) load(g *inputs.Group, in groupInput) error {
	switch {
	case in.PDF != "":
		file, err := inputs.OpenPDF(in.PDF, l.maxSize)
		if err != nil {
			return err
		}
		if err := g.SetMode(types.ModeFile); err != nil {
			return err
		}
		g.SelectFile(file)
	case in.TextFile != "":
		text, err := l.files.ReadTextInput(in.TextFile)
		if err != nil {
			return err
		}
		if err := g.SetMode(types.ModeText); err != nil {
			return err
		}
		g.SetText(text)
	case in.Text != "":
		if err := g.SetMode(types.ModeText); err != nil {
			return err
		}
		g.SetText(in.Text)
	}
	return nil
}
