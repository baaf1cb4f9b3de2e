// Package render draws table views and the lobby as terminal text.
package render

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/lox/parlor/internal/cards"
	"github.com/lox/parlor/internal/ludo"
	"github.com/lox/parlor/internal/teenpatti"
	"github.com/lox/parlor/internal/twentynine"
)

// logTail is how many log entries a table render shows.
const logTail = 8

// Card renders a wire code with its suit symbol, coloured by suit. Hidden
// and unparseable codes are shown dimmed as-is.
func Card(code string) string {
	c, err := cards.Parse(code)
	if err != nil {
		return InfoStyle.Render(code)
	}
	if c.Suit.IsRed() {
		return RedCardStyle.Render(c.Pretty())
	}
	return BlackCardStyle.Render(c.Pretty())
}

// Cards renders a hand as "[A♠ 10♥ XX]".
func Cards(codes []string) string {
	if len(codes) == 0 {
		return InfoStyle.Render("[]")
	}
	out := make([]string, len(codes))
	for i, code := range codes {
		out[i] = Card(code)
	}
	return "[" + strings.Join(out, " ") + "]"
}

func suitSymbol(code string) string {
	s, err := cards.ParseSuit(code)
	if err != nil {
		return code
	}
	return s.Symbol()
}

func marker(current bool) string {
	if current {
		return TurnStyle.Render("▶ ")
	}
	return "  "
}

func botTag(bot bool) string {
	if bot {
		return InfoStyle.Render(" (bot)")
	}
	return ""
}

// State decodes a raw view for game ("teenpatti", "ludo" or "twentynine")
// and renders it.
func State(game string, raw json.RawMessage) (string, error) {
	switch game {
	case "teenpatti":
		var v teenpatti.View
		if err := json.Unmarshal(raw, &v); err != nil {
			return "", fmt.Errorf("decode teen patti view: %w", err)
		}
		return TeenPatti(v), nil
	case "ludo":
		var v ludo.View
		if err := json.Unmarshal(raw, &v); err != nil {
			return "", fmt.Errorf("decode ludo view: %w", err)
		}
		return Ludo(v), nil
	case "twentynine":
		var v twentynine.View
		if err := json.Unmarshal(raw, &v); err != nil {
			return "", fmt.Errorf("decode twenty-nine view: %w", err)
		}
		return TwentyNine(v), nil
	}
	return "", fmt.Errorf("unknown game %q", game)
}

// TeenPatti renders a Teen Patti table.
func TeenPatti(v teenpatti.View) string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render(fmt.Sprintf("Teen Patti · %s", v.Name)))
	b.WriteString("\n")

	status := InfoStyle.Render("waiting for players")
	if v.HandActive {
		status = HandInfoStyle.Render(fmt.Sprintf("Hand #%d", v.HandNumber))
	}
	fmt.Fprintf(&b, "%s  Boot %d  Pot %s  Stake %d\n\n", status, v.Ante,
		WarningStyle.Render(strconv.Itoa(v.Pot)), v.CurrentBet)

	for i, p := range v.Players {
		state := ""
		switch {
		case p.Packed:
			state = ErrorStyle.Render(" packed")
		case p.Seen:
			state = SuccessStyle.Render(" seen")
		case v.HandActive:
			state = InfoStyle.Render(" blind")
		}
		dealer := ""
		if i == v.Dealer {
			dealer = InfoStyle.Render(" (D)")
		}
		fmt.Fprintf(&b, "%s%-12s%s%s %6d  %s%s\n", marker(p.ID == v.CurrentPlayer && v.HandActive),
			p.Name, dealer, botTag(p.Bot), p.Chips, Cards(p.Cards), state)
	}

	if r := v.LastResult; r != nil {
		names := make([]string, len(r.Winners))
		for i, w := range r.Winners {
			names[i] = fmt.Sprintf("%s +%d", w.Name, w.Amount)
		}
		fmt.Fprintf(&b, "\n%s %s\n", SuccessStyle.Render(fmt.Sprintf("Hand #%d (%s):", r.Hand, r.Reason)), strings.Join(names, ", "))
		for _, s := range r.Shown {
			fmt.Fprintf(&b, "  %s %s %s\n", s.ID, Cards(s.Cards), InfoStyle.Render(s.Category))
		}
	}

	writeLog(&b, tail(v.Log), func(e teenpatti.Event) string {
		line := fmt.Sprintf("#%d %s %s", e.Hand, e.Kind, e.Participant)
		if e.Action != "" {
			line += " " + string(e.Action)
		}
		if e.Amount > 0 {
			line += fmt.Sprintf(" %d", e.Amount)
		}
		if e.Detail != "" {
			line += " " + e.Detail
		}
		return line
	})
	return b.String()
}

// Ludo renders a Ludo board as per-seat token steps: Y for the yard, F for
// finished.
func Ludo(v ludo.View) string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render(fmt.Sprintf("Ludo · %s", v.Name)))
	b.WriteString("\n")

	status := InfoStyle.Render("not started")
	if v.Active {
		status = HandInfoStyle.Render(fmt.Sprintf("Game #%d", v.GameNumber))
	} else if v.GameNumber > 0 {
		status = SuccessStyle.Render(fmt.Sprintf("Game #%d over", v.GameNumber))
	}
	b.WriteString(status)
	if v.Dice > 0 {
		fmt.Fprintf(&b, "  Die %s", WarningStyle.Render(strconv.Itoa(v.Dice)))
	}
	if len(v.Blockades) > 0 {
		fmt.Fprintf(&b, "  Blockades %v", v.Blockades)
	}
	b.WriteString("\n\n")

	for _, p := range v.Players {
		steps := make([]string, len(p.Tokens))
		for i, tok := range p.Tokens {
			switch {
			case tok.Finished:
				steps[i] = "F"
			case tok.Step == ludo.Yard:
				steps[i] = "Y"
			default:
				steps[i] = strconv.Itoa(tok.Step)
			}
		}
		rank := ""
		if p.Rank > 0 {
			rank = SuccessStyle.Render(fmt.Sprintf(" #%d", p.Rank))
		}
		name := tokenStyles[p.Color].Render(fmt.Sprintf("%-12s", p.Name))
		fmt.Fprintf(&b, "%s%s%s [%s]%s\n", marker(p.ID == v.CurrentPlayer && v.Active), name, botTag(p.Bot),
			strings.Join(steps, " "), rank)
	}
	if len(v.Movable) > 0 {
		fmt.Fprintf(&b, "\n%s %v\n", TurnStyle.Render("Movable tokens:"), v.Movable)
	}

	writeLog(&b, tail(v.Log), func(e ludo.Event) string {
		line := fmt.Sprintf("#%d %s %s", e.Game, e.Kind, e.Participant)
		switch e.Kind {
		case ludo.EventRoll:
			line += fmt.Sprintf(" rolled %d", e.Die)
		case ludo.EventMove:
			line += fmt.Sprintf(" token %d %d→%d", e.Token, e.From, e.To)
			if len(e.Captured) > 0 {
				line += " captured " + strings.Join(e.Captured, ",")
			}
		case ludo.EventFinished:
			line += fmt.Sprintf(" rank %d", e.Rank)
		}
		if e.Detail != "" {
			line += " " + e.Detail
		}
		return line
	})
	return b.String()
}

// TwentyNine renders a Twenty-Nine table.
func TwentyNine(v twentynine.View) string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render(fmt.Sprintf("Twenty-Nine · %s", v.Name)))
	b.WriteString("\n")

	status := InfoStyle.Render("waiting for four players")
	if v.Active {
		status = HandInfoStyle.Render(fmt.Sprintf("Hand #%d", v.HandNumber))
	}
	b.WriteString(status)
	if v.Bidder != "" {
		bid := fmt.Sprintf("  Bid %d by %s, trump %s", v.HighestBid, v.Bidder, suitSymbol(v.Trump))
		if v.ForcedBid {
			bid += " (forced)"
		}
		b.WriteString(WarningStyle.Render(bid))
	}
	if v.BiddingOpen {
		b.WriteString(InfoStyle.Render("  bidding open"))
	}
	fmt.Fprintf(&b, "\nTeams %d : %d\n\n", v.TeamPoints[0], v.TeamPoints[1])

	for _, p := range v.Players {
		fmt.Fprintf(&b, "%s%-12s%s T%d tricks %d  %s\n", marker(p.ID == v.CurrentPlayer && v.Active),
			p.Name, botTag(p.Bot), p.Team+1, p.WonTricks, Cards(p.Cards))
	}

	writeTrick := func(label string, trick []twentynine.TrickCard) {
		if len(trick) == 0 {
			return
		}
		parts := make([]string, len(trick))
		for i, tc := range trick {
			parts[i] = tc.Participant + " " + Card(tc.Card)
		}
		fmt.Fprintf(&b, "%s %s\n", InfoStyle.Render(label), strings.Join(parts, ", "))
	}
	b.WriteString("\n")
	writeTrick("Trick:", v.Trick)
	writeTrick("Last trick:", v.LastTrick)

	if r := v.LastResult; r != nil {
		outcome := ErrorStyle.Render("contract lost")
		if r.ContractMade {
			outcome = SuccessStyle.Render("contract made")
		}
		fmt.Fprintf(&b, "Hand #%d: %s bid %d, took %d, %s\n", r.Hand, r.Bidder, r.Bid, r.BidderPoints, outcome)
	}

	writeLog(&b, tail(v.Log), func(e twentynine.Event) string {
		line := fmt.Sprintf("#%d %s %s", e.Hand, e.Kind, e.Participant)
		if e.Amount > 0 {
			line += fmt.Sprintf(" %d", e.Amount)
		}
		if e.Trump != "" {
			line += " " + suitSymbol(e.Trump)
		}
		if e.Card != "" {
			line += " " + e.Card
		}
		if e.Detail != "" {
			line += " " + e.Detail
		}
		return line
	})
	return b.String()
}

func tail[T any](log []T) []T {
	if len(log) > logTail {
		return log[len(log)-logTail:]
	}
	return log
}

func writeLog[T any](b *strings.Builder, log []T, line func(T) string) {
	if len(log) == 0 {
		return
	}
	b.WriteString("\n")
	for _, e := range log {
		b.WriteString(LogStyle.Render(line(e)))
		b.WriteString("\n")
	}
}

// Lobby lists tables per game. Empty sections are omitted.
func Lobby(tp []teenpatti.Summary, ld []ludo.Summary, tn []twentynine.Summary) string {
	var b strings.Builder
	if len(tp) > 0 {
		b.WriteString(HeaderStyle.Render("Teen Patti"))
		b.WriteString("\n")
		for _, s := range tp {
			fmt.Fprintf(&b, "  %-8s %-18s %d/%d  boot %d  buy-in %d-%d%s\n", s.ID, s.Name, s.Players, s.MaxPlayers,
				s.Ante, s.MinBuyIn, s.MaxBuyIn, activeTag(s.HandActive))
		}
	}
	if len(ld) > 0 {
		b.WriteString(HeaderStyle.Render("Ludo"))
		b.WriteString("\n")
		for _, s := range ld {
			fmt.Fprintf(&b, "  %-8s %-18s %d/%d%s\n", s.ID, s.Name, s.Players, ludo.Seats, activeTag(s.Active))
		}
	}
	if len(tn) > 0 {
		b.WriteString(HeaderStyle.Render("Twenty-Nine"))
		b.WriteString("\n")
		for _, s := range tn {
			fmt.Fprintf(&b, "  %-8s %-18s %d/%d%s\n", s.ID, s.Name, s.Players, s.MaxPlayers, activeTag(s.Active))
		}
	}
	if b.Len() == 0 {
		return InfoStyle.Render("No tables")
	}
	return b.String()
}

func activeTag(active bool) string {
	if active {
		return SuccessStyle.Render("  playing")
	}
	return ""
}
