package main

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/luca-patrignani/resonance/application"
	"github.com/luca-patrignani/resonance/domain/event"
	"github.com/luca-patrignani/resonance/domain/token"
	"github.com/luca-patrignani/resonance/identity"
)

func newDemoCmd(root *rootOptions) *cobra.Command {
	var founders int
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted session on an in-memory ledger",
		Long: `Create a ledger with founding witnesses, then let a user contribute a
thought, a verifier validate it, the user evolve it and anchor an
experience, and print the resulting chain.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context(), root, founders)
		},
	}
	cmd.Flags().IntVar(&founders, "founders", 3, "Number of founding witnesses")
	return cmd
}

func runDemo(ctx context.Context, root *rootOptions, n int) error {
	pterm.DefaultHeader.WithFullWidth().Println("Resonance ledger demo")

	o, founders, err := bootstrap(ctx, root.cfg, n, application.WithLogger(root.logger))
	if err != nil {
		return err
	}
	pterm.Success.Printfln("Genesis block created with %d founding witnesses", len(founders))

	user, err := o.CreateIdentity()
	if err != nil {
		return err
	}
	o.Mint(user.Address(), token.Unit)
	pterm.Info.Printfln("User %s balance %s", short(user.Address()), formatTokens(o.Balance(user.Address())))

	pterm.DefaultSection.Println("Submitting events")
	spark, err := o.Submit(user, event.Contribute{
		Content: "The first spark of collective awareness emerges from the void",
		Context: "Genesis of shared awareness",
	})
	if err != nil {
		return err
	}
	if err := createBlock(ctx, o); err != nil {
		return err
	}

	verifier, err := o.CreateIdentity()
	if err != nil {
		return err
	}
	o.Mint(verifier.Address(), token.Unit)

	sparkID, _ := spark.ResultNodeID()
	steps := []struct {
		who *identity.Identity
		p   event.Payload
	}{
		{verifier, event.Validate{NodeID: sparkID, Proof: "I recognize the truth in this emergence", Score: 0.85}},
		{user, event.Evolve{
			ParentID:       sparkID,
			MutationPrompt: "Expand awareness into collective intelligence",
			NewContent:     "From individual spark to collective flame, awareness networks emerge",
		}},
		{user, event.Anchor{Summary: "Deep meditation state achieved, unity experienced", ExternalHash: "meditation_session_001"}},
	}
	for _, s := range steps {
		e, err := o.Submit(s.who, s.p)
		if err != nil {
			return err
		}
		pterm.Info.Printfln("%s event %s from %s", e.Kind(), short(e.ID), short(e.Sender))
	}
	if err := createBlock(ctx, o); err != nil {
		return err
	}

	pterm.DefaultSection.Println("Results")
	pterm.Println(statsPanel(o.Stats()))

	names := []string{"user", "verifier"}
	addrs := []string{user.Address(), verifier.Address()}
	for i, f := range founders {
		names = append(names, fmt.Sprintf("founder %d", i+1))
		addrs = append(addrs, f.Address())
	}
	balances, err := balancesTable(names, o, addrs)
	if err != nil {
		return err
	}
	pterm.Println(balances)

	results, err := queryTable(o.QueryContent("awareness", 0.1), 3)
	if err != nil {
		return err
	}
	pterm.DefaultSection.WithLevel(2).Println(`Query "awareness"`)
	pterm.Println(results)

	blocks, err := blocksTable(o.RecentBlocks(5))
	if err != nil {
		return err
	}
	pterm.DefaultSection.WithLevel(2).Println("Recent blocks")
	pterm.Println(blocks)

	if err := o.Verify(); err != nil {
		return err
	}
	pterm.Success.Println("Chain verified")
	return nil
}

func createBlock(ctx context.Context, o *application.Orchestrator) error {
	spinner, _ := pterm.DefaultSpinner.Start("Mining block ...")
	h, err := o.CreateBlock(ctx)
	if err != nil {
		spinner.Fail(err.Error())
		return err
	}
	spinner.Success(fmt.Sprintf("Block %d accepted", h))
	return nil
}
