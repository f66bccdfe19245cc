package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/born-ml/graphgrad/internal/autodiff"
	"github.com/born-ml/graphgrad/internal/backend/cpu"
	"github.com/born-ml/graphgrad/internal/ctxlog"
	"github.com/born-ml/graphgrad/internal/graphfile"
	"github.com/born-ml/graphgrad/internal/serialization"
	"github.com/born-ml/graphgrad/internal/tensor"
)

// Run loads the graph file, runs the configured backward passes from its
// output and reports every node to out. Logs go to logW.
func Run(ctx context.Context, cfg *Config, out, logW io.Writer) error {
	logger := ctxlog.New(cfg.LogLevel, cfg.LogFormat, logW)
	ctx = ctxlog.WithLogger(ctx, logger)

	loaded, err := graphfile.Load(ctx, cfg.GraphPath, cpu.New())
	if err != nil {
		return err
	}
	g := loaded.Graph

	for pass := 1; pass <= cfg.Passes; pass++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if cfg.ZeroGrad {
			if err := g.ZeroGrad(loaded.Output); err != nil {
				return fmt.Errorf("zero grad: %w", err)
			}
		}
		if err := g.Backward(loaded.Output); err != nil {
			return fmt.Errorf("backward pass %d: %w", pass, err)
		}
		logger.Debug("Backward pass complete", "pass", pass, "output", loaded.OutputName)
	}

	for _, name := range loaded.Order {
		id := loaded.Nodes[name]
		logger.Info("Node",
			"name", name,
			"kind", g.Kind(id).String(),
			"shape", g.Value(id).Shape().String(),
			"value", g.Value(id).Float64s(),
			"grad", gradValues(g, id),
		)
	}
	if err := Report(out, loaded); err != nil {
		return err
	}

	if cfg.OutPath != "" {
		metadata := map[string]string{
			"output": loaded.OutputName,
			"passes": strconv.Itoa(cfg.Passes),
		}
		tensors, err := ExportTensors(loaded)
		if err != nil {
			return fmt.Errorf("export %s: %w", cfg.OutPath, err)
		}
		if err := serialization.WriteSafeTensors(cfg.OutPath, tensors, metadata); err != nil {
			return fmt.Errorf("export %s: %w", cfg.OutPath, err)
		}
		logger.Info("Wrote tensors", "path", cfg.OutPath)
	}

	return nil
}

// Report writes one line per node: name, kind, shape, value and gradient.
func Report(w io.Writer, loaded *graphfile.Loaded) error {
	g := loaded.Graph
	for _, name := range loaded.Order {
		id := loaded.Nodes[name]
		grad := "-"
		if gr := g.Grad(id); gr != nil {
			grad = fmt.Sprint(gr.Float64s())
		}
		marker := ""
		if id == loaded.Output {
			marker = " (output)"
		}
		if _, err := fmt.Fprintf(w, "%s%s [%s %s] value=%v grad=%s\n",
			name, marker, g.Kind(id), g.Value(id).Shape(), g.Value(id).Float64s(), grad); err != nil {
			return err
		}
	}
	return nil
}

// ErrExportCollision reports two exported tensors that would share a key.
var ErrExportCollision = errors.New("export key collision")

// ExportTensors collects every node's value under its name and its
// gradient, if any, under "<name>.grad". Keys must be unique.
func ExportTensors(loaded *graphfile.Loaded) (map[string]*tensor.RawTensor, error) {
	g := loaded.Graph
	out := make(map[string]*tensor.RawTensor, 2*len(loaded.Order))
	put := func(key string, raw *tensor.RawTensor) error {
		if _, ok := out[key]; ok {
			return fmt.Errorf("%w: %q", ErrExportCollision, key)
		}
		out[key] = raw
		return nil
	}

	for _, name := range loaded.Order {
		id := loaded.Nodes[name]
		if err := put(name, g.Value(id)); err != nil {
			return nil, err
		}
		if grad := g.Grad(id); grad != nil {
			if err := put(name+graphfile.GradSuffix, grad); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func gradValues(g *autodiff.Graph, id autodiff.NodeID) []float64 {
	if grad := g.Grad(id); grad != nil {
		return grad.Float64s()
	}
	return nil
}
