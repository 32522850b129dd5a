package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/luca-patrignani/resonance/domain/event"
	"github.com/luca-patrignani/resonance/domain/graph"
	"github.com/luca-patrignani/resonance/identity"
)

type signOptions struct {
	secret       string
	kind         string
	content      string
	context      string
	edges        []string
	nodeID       string
	proof        string
	score        float64
	parentID     string
	prompt       string
	summary      string
	externalHash string
}

func newSignCmd() *cobra.Command {
	o := &signOptions{}
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Build and sign an event",
		Long: `Build an event of the given kind, sign it with the secret and print it as a
single JSON line, ready to be appended to an events file for "resonance run".`,
		Example: `  resonance sign --secret $SECRET --kind contribute --content "a spark" --edge <node>=0.5
  resonance sign --secret $SECRET --kind validate --node <node> --score 0.8`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := identity.FromSecret(o.secret)
			if err != nil {
				return err
			}
			p, err := o.payload()
			if err != nil {
				return err
			}
			e := event.New(id, p, time.Now())
			if err := e.Sign(id); err != nil {
				return err
			}
			if err := e.Validate(); err != nil {
				return err
			}
			b, err := json.Marshal(e)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.secret, "secret", "", "Hex secret of the signing identity")
	f.StringVar(&o.kind, "kind", string(event.KindContribute), "Event kind: contribute, validate, evolve or anchor")
	f.StringVar(&o.content, "content", "", "Content of a contribution, or the new content of an evolution")
	f.StringVar(&o.context, "context", "", "Context of a contribution")
	f.StringSliceVar(&o.edges, "edge", nil, "Link to an existing node as id=weight (repeatable)")
	f.StringVar(&o.nodeID, "node", "", "Node to validate")
	f.StringVar(&o.proof, "proof", "", "Validation proof")
	f.Float64Var(&o.score, "score", 0, "Validation score in [0,1]")
	f.StringVar(&o.parentID, "parent", "", "Node to evolve")
	f.StringVar(&o.prompt, "prompt", "", "Mutation prompt of an evolution")
	f.StringVar(&o.summary, "summary", "", "Summary of an anchor")
	f.StringVar(&o.externalHash, "external-hash", "", "External hash of an anchor")
	_ = cmd.MarkFlagRequired("secret")
	return cmd
}

func (o *signOptions) payload() (event.Payload, error) {
	switch event.Kind(o.kind) {
	case event.KindContribute:
		edges, err := parseEdges(o.edges)
		if err != nil {
			return nil, err
		}
		return event.Contribute{Content: o.content, Context: o.context, Edges: edges}, nil
	case event.KindValidate:
		return event.Validate{NodeID: o.nodeID, Proof: o.proof, Score: o.score}, nil
	case event.KindEvolve:
		return event.Evolve{ParentID: o.parentID, MutationPrompt: o.prompt, NewContent: o.content}, nil
	case event.KindAnchor:
		return event.Anchor{Summary: o.summary, ExternalHash: o.externalHash}, nil
	}
	return nil, fmt.Errorf("unknown event kind %q", o.kind)
}

func parseEdges(raw []string) ([]graph.Edge, error) {
	edges := make([]graph.Edge, 0, len(raw))
	for _, r := range raw {
		target, weight, ok := strings.Cut(r, "=")
		if !ok || target == "" {
			return nil, fmt.Errorf("edge %q: expected id=weight", r)
		}
		w, err := strconv.ParseFloat(weight, 64)
		if err != nil {
			return nil, fmt.Errorf("edge %q: %w", r, err)
		}
		edges = append(edges, graph.Edge{Target: target, Weight: w})
	}
	return edges, nil
}
