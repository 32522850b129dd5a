package main

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"

	"github.com/luca-patrignani/resonance/application"
	"github.com/luca-patrignani/resonance/domain/token"
)

// formatTokens renders base units as whole tokens.
func formatTokens(amount uint64) string {
	whole := amount / token.Unit
	frac := amount % token.Unit / (token.Unit / 10_000)
	return fmt.Sprintf("%d.%04d RES", whole, frac)
}

func short(s string) string {
	if len(s) <= 16 {
		return s
	}
	return s[:16] + "..."
}

func statsPanel(s application.ChainStats) string {
	pbox := pterm.DefaultBox.WithLeftPadding(4).WithRightPadding(4).WithTopPadding(1).WithBottomPadding(1)
	body := pterm.Sprintfln("Height: %d blocks", s.Height) +
		pterm.Sprintfln("Nodes: %d", s.TotalNodes) +
		pterm.Sprintfln("Global coherence: %.4f", s.GlobalCoherence) +
		pterm.Sprintfln("Token supply: %s", formatTokens(s.TotalSupply)) +
		pterm.Sprintfln("Active witnesses: %d", s.ActiveWitnessCount) +
		pterm.Sprintfln("Pending events: %d", s.PendingEventCount) +
		pterm.Sprintf("Next difficulty: %d", s.NextDifficulty)
	return pbox.WithTitle(pterm.LightYellow("|CHAIN|")).WithTitleTopCenter().Sprint(body)
}

func balancesTable(names []string, o *application.Orchestrator, addrs []string) (string, error) {
	data := pterm.TableData{{"who", "address", "balance", "staked"}}
	for i, addr := range addrs {
		data = append(data, []string{
			pterm.LightCyan(names[i]),
			short(addr),
			formatTokens(o.Balance(addr)),
			formatTokens(o.StakedBalance(addr)),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
}

func queryTable(results []application.ContentResult, limit int) (string, error) {
	data := pterm.TableData{{"content", "creator", "coherence", "connections"}}
	for i, r := range results {
		if i == limit {
			break
		}
		content := r.Content
		if len(content) > 50 {
			content = content[:50] + "..."
		}
		data = append(data, []string{
			content,
			short(r.Creator),
			strconv.FormatFloat(r.Coherence, 'f', 3, 64),
			strconv.Itoa(r.ConnectionCount),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
}

func blocksTable(blocks []application.BlockSummary) (string, error) {
	data := pterm.TableData{{"height", "time", "witness", "events", "hash"}}
	for _, b := range blocks {
		data = append(data, []string{
			strconv.FormatUint(b.Height, 10),
			b.Timestamp.Format("15:04:05.000"),
			short(b.Witness),
			strconv.Itoa(b.EventCount),
			short(b.Hash),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
}
