package evaluation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/mideind/ParsingTestPipe/evaluation/fileutils"
	"github.com/mideind/ParsingTestPipe/evaluation/logging"
)

const (
	inPlaceholder  = "{in}"
	outPlaceholder = "{out}"
)

// ParserCommand is an external parser or tagger invocation. Args[0] is the program; "{in}" and
// "{out}" in any argument are replaced with the absolute input and output paths.
type ParserCommand struct {
	Name string
	// Dir is the working directory. Some tools only run from their own directory.
	Dir  string
	Args []string
}

// AnnoparseCommand runs the Greynir parser's annoparse front end.
func AnnoparseCommand() ParserCommand {
	return ParserCommand{Name: "annoparse", Args: []string{"annoparse", "-i", inPlaceholder, "-o", outPlaceholder, "-s"}}
}

// IceTaggerCommand runs IceTagger from its install directory (IceNLPCore/bat/icetagger).
func IceTaggerCommand(dir string) ParserCommand {
	return ParserCommand{
		Name: "icetagger",
		Dir:  dir,
		Args: []string{"./icetagger.sh", "-i", inPlaceholder, "-o", outPlaceholder, "-lf", "2", "-of", "2"},
	}
}

// IceParserCommand runs IceParser over tagged text from its install directory (IceNLPCore/bat/iceparser).
func IceParserCommand(dir string) ParserCommand {
	return ParserCommand{
		Name: "iceparser",
		Dir:  dir,
		Args: []string{"./iceparser.sh", "-i", inPlaceholder, "-o", outPlaceholder, "-f", "-m"},
	}
}

// Expand returns the arguments for one input/output pair.
func (c ParserCommand) Expand(in, out string) []string {
	r := strings.NewReplacer(inPlaceholder, in, outPlaceholder, out)
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = r.Replace(a)
	}
	return args
}

// RunOptions controls RunParser.
type RunOptions struct {
	Overwrite bool
	Logger    *zap.Logger
}

// RunResult counts what RunParser did.
type RunResult struct {
	Written int
	Skipped int
}

// RunParser runs cmd once per file in inDir ending with inSuffix, writing outDir/<stem><outSuffix>.
// Existing outputs are kept unless opts.Overwrite. A non-zero exit status is an error.
func RunParser(ctx context.Context, inDir, outDir, inSuffix, outSuffix string, cmd ParserCommand, opts RunOptions) (RunResult, error) {
	logger := logging.OrNop(opts.Logger).With(zap.String("parser", cmd.Name))
	if len(cmd.Args) == 0 {
		return RunResult{}, errors.New("RunParser: empty command")
	}
	absIn, err := filepath.Abs(inDir)
	if err != nil {
		return RunResult{}, fmt.Errorf("RunParser: %w", err)
	}
	absOut, err := filepath.Abs(outDir)
	if err != nil {
		return RunResult{}, fmt.Errorf("RunParser: %w", err)
	}

	names, err := fileutils.ListFiles(absIn, inSuffix)
	if err != nil {
		return RunResult{}, fmt.Errorf("RunParser: %w", err)
	}
	if err := os.MkdirAll(absOut, 0o755); err != nil {
		return RunResult{}, fmt.Errorf("RunParser: %w", err)
	}

	var res RunResult
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		in := filepath.Join(absIn, name)
		out := filepath.Join(absOut, fileutils.ReplaceSuffix(name, inSuffix, outSuffix))
		ok, err := fileutils.ShouldWrite(out, opts.Overwrite)
		if err != nil {
			return res, fmt.Errorf("RunParser: %w", err)
		}
		if !ok {
			logger.Debug("skip", zap.String("out", out), zap.String("reason", "exists"))
			res.Skipped++
			continue
		}

		logger.Info("progress", zap.String("in", in), zap.String("out", out))
		stdout, err := runCommand(ctx, cmd, in, out)
		if s := strings.TrimSpace(stdout); s != "" {
			logger.Debug("stdout", zap.String("in", name), zap.String("text", fileutils.Truncate(s, 2000)))
		}
		if err != nil {
			return res, fmt.Errorf("RunParser: %s: %w", name, err)
		}
		res.Written++
	}
	return res, nil
}

func runCommand(ctx context.Context, pc ParserCommand, in, out string) (string, error) {
	args := pc.Expand(in, out)
	c := exec.CommandContext(ctx, args[0], args[1:]...)
	c.Dir = pc.Dir
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	if err := c.Run(); err != nil {
		return stdout.String(), fmt.Errorf("%s: %w (stderr=%q)", pc.Name, err, fileutils.Truncate(stderr.String(), 500))
	}
	return stdout.String(), nil
}
