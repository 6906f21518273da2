// cmd/peak/main.go is a pass-and-play terminal client: every seat shares one
// terminal and one engine.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/jason-s-yu/peak/internal/game"
	"github.com/jason-s-yu/peak/internal/models"
	"github.com/jason-s-yu/peak/internal/rating"
	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
	"github.com/sirupsen/logrus"
)

func main() {
	players := flag.Int("players", 4, "number of players (2-4)")
	classic := flag.Bool("classic", false, "play with the Peak-only deck")
	strict := flag.Bool("adjacency", false, "numbers must be within one of the last played card")
	flag.Parse()

	if *players < game.MinPlayers || *players > game.MaxPlayers {
		pterm.Error.Printfln("Peak needs %d to %d players, got %d", game.MinPlayers, game.MaxPlayers, *players)
		os.Exit(1)
	}
	rules := game.DefaultHouseRules()
	rules.ClassicDeck = *classic
	rules.StrictAdjacency = *strict

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	title, _ := pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithStyle("P", pterm.FgRed.ToStyle()),
		putils.LettersFromStringWithStyle("eak", pterm.FgDarkGray.ToStyle()),
	).Srender()
	pterm.Print(title)
	printRules(rules)

	roster := readRoster(*players)
	tally := newSession()

	for {
		g, err := game.NewPeakGame(roster, rules, game.WithLogger(logrus.NewEntry(logger)))
		if err != nil {
			pterm.Error.Println(err)
			os.Exit(1)
		}

		var result *game.GameResult
		g.OnGameEnd = func(res game.GameResult) { result = &res }
		if err := g.Start(); err != nil {
			pterm.Error.Println(err)
			os.Exit(1)
		}

		if quit := playGame(g); quit {
			pterm.Println("Thanks for playing!")
			return
		}
		if result != nil {
			printResult(*result)
			tally.record(*result)
			printRatings(roster, tally.ratings, tally.played)
		}

		again, _ := pterm.DefaultInteractiveConfirm.WithDefaultText("Play again?").Show()
		if !again {
			pterm.Println("Thanks for playing!")
			return
		}
	}
}

func printRules(rules game.HouseRules) {
	deck := "cards 1-10 (4 of each), 10 Peak, 2 each of Reverse, Star, Goblin, Pause"
	if rules.ClassicDeck {
		deck = "cards 1-10 (4 of each) and 10 Peak cards"
	}
	text := strings.Join([]string{
		pterm.Sprintf("Deck: %s", deck),
		pterm.Sprintf("Each player starts with %d cards", rules.StartingHandSize),
		"",
		pterm.LightCyan("Finishing"),
		"  cannot finish on 1-4 or 7, or on a special card",
		"  can finish on 5-6",
		"  can finish on 8-10 only if someone else played an 8-10 this round",
		"",
		pterm.LightCyan("Special cards"),
		pterm.Sprintf("  Peak: next player picks up %d cards", rules.PeakPenalty),
		"  Reverse: turn order flips",
		"  Star: everyone else returns their Peak cards to the deck",
		"  Goblin: everyone else receives a low card (1-4)",
		pterm.Sprintf("  Pause: next player is skipped for %d seconds", rules.PauseSeconds),
		"",
		pterm.Sprintf("Over %d cards and you are disqualified. Last player standing wins.", rules.HandLimit),
	}, "\n")
	pterm.DefaultBox.WithTitle(pterm.LightYellow("|PEAK RULES|")).WithTitleTopCenter().Println(text)
}

func readRoster(n int) []models.Participant {
	var roster []models.Participant
	taken := make(map[string]bool)
	for i := 0; i < n; i++ {
		for {
			name, _ := pterm.DefaultInteractiveTextInput.WithDefaultText(fmt.Sprintf("Name for Player %d", i+1)).Show()
			name = strings.TrimSpace(name)
			switch {
			case name == "":
				pterm.Warning.Println("Please enter a valid name.")
			case taken[strings.ToLower(name)]:
				pterm.Warning.Println("Name already taken. Please choose a different name.")
			default:
				taken[strings.ToLower(name)] = true
				roster = append(roster, models.Participant{ID: name, DisplayName: name})
			}
			if len(roster) == i+1 {
				break
			}
		}
	}
	return roster
}

// playGame runs turns until the game ends. It reports whether the user quit.
func playGame(g *game.PeakGame) bool {
	seen := 0
	for {
		st := g.Snapshot()
		seen = printNewLog(st, seen)
		if st.Phase != game.PhaseInProgress {
			return false
		}
		cur := st.CurrentPlayer()
		printTable(st, cur.ID)

		playable, canDraw := g.PlayerOptions(cur.ID)
		choices := turnChoices(st, cur.ID, playable, canDraw)
		labels := make([]string, len(choices))
		for i, c := range choices {
			labels[i] = c.Label
		}
		picked, err := pterm.DefaultInteractiveSelect.
			WithDefaultText(pterm.Sprintf("%s, choose your move", pterm.LightCyan(cur.DisplayName))).
			WithOptions(labels).
			WithMaxHeight(len(labels)).
			Show()
		if err != nil {
			return true
		}

		var choice turnChoice
		for _, c := range choices {
			if c.Label == picked {
				choice = c
			}
		}
		switch choice.Kind {
		case choicePlay:
			err = g.PlayCard(cur.ID, choice.HandIndex)
		case choiceDraw:
			err = g.DrawCard(cur.ID)
		case choicePass:
			err = g.AdvanceTurn()
		case choiceLog:
			printLog(st)
		case choiceQuit:
			return true
		}
		if err != nil {
			pterm.Error.Println(err)
		}
	}
}

func printNewLog(st game.GameState, seen int) int {
	if seen > len(st.Log) {
		seen = 0
	}
	for _, line := range st.Log[seen:] {
		pterm.Info.Println(line)
	}
	return len(st.Log)
}

func printLog(st game.GameState) {
	items := make([]pterm.BulletListItem, 0, len(st.Log))
	for _, line := range st.Log {
		items = append(items, pterm.BulletListItem{Level: 0, Text: line})
	}
	pterm.DefaultSection.Println("Game log")
	pterm.DefaultBulletList.WithItems(items).Render()
}

// printTable shows every seat, with the current player's hand face up.
func printTable(st game.GameState, viewer string) {
	view := game.ViewOf(st, viewer)
	var others []pterm.Panel
	var mine pterm.Panel
	for _, p := range view.Players {
		box := pterm.DefaultBox.WithHorizontalPadding(2).WithTitle(p.DisplayName).WithTitleTopLeft()
		status := statusText(p)
		if p.PlayerID == viewer {
			hand := make([]string, len(p.Hand))
			for i, c := range p.Hand {
				hand[i] = fmt.Sprintf("%d:%s", i+1, c)
			}
			mine = pterm.Panel{Data: box.WithHorizontalPadding(6).Sprintf("%s\n%s", status, pterm.BgGreen.Sprint(" "+strings.Join(hand, "  ")+" "))}
			continue
		}
		others = append(others, pterm.Panel{Data: box.Sprintf("%s\n%d cards", status, p.HandSize)})
	}

	last := "none"
	if view.LastPlayedCard != nil {
		last = view.LastPlayedCard.String()
	}
	dir := "clockwise"
	if view.Direction < 0 {
		dir = "counter-clockwise"
	}
	board := pterm.Panel{Data: pterm.DefaultBox.WithTitle(pterm.LightYellow("|PILE|")).WithTitleTopCenter().Sprintf(
		"Last played: %s\nRound %d, %s\nHigh card this round: %t\nDeck %d, discard %d",
		last, view.Round, dir, view.HighCardPlayedThisRound, view.DeckSize, view.DiscardSize)}

	pterm.DefaultPanel.WithPanels([][]pterm.Panel{others, {board}, {mine}}).Render()
}

func statusText(p game.PlayerViewState) string {
	switch p.Status {
	case models.StatusFinished:
		return pterm.LightGreen("Finished")
	case models.StatusDisqualified:
		return pterm.LightRed("Disqualified")
	}
	if p.PausedUntil != nil {
		return pterm.Yellow("Paused")
	}
	if p.IsCurrentTurn {
		return pterm.LightCyan("To play")
	}
	return "Active"
}

func printResult(res game.GameResult) {
	text := "No winner"
	if res.WinnerID != "" {
		text = pterm.Sprintf("%s wins after %d rounds!", pterm.LightCyan(res.WinnerID), res.Rounds)
	}
	if len(res.Disqualified) > 0 {
		text += "\nDisqualified: " + strings.Join(res.Disqualified, ", ")
	}
	pterm.DefaultBox.WithTitle(pterm.LightGreen("|GAME OVER|")).WithTitleTopCenter().Println(text)
}

func printRatings(roster []models.Participant, ratings map[string]rating.PlayerRating, played int) {
	data := pterm.TableData{{"Player", "Rating", "RD", "Games"}}
	for _, p := range roster {
		r, ok := ratings[p.ID]
		if !ok {
			r = rating.NewPlayerRating(p.ID)
		}
		data = append(data, []string{p.DisplayName, fmt.Sprintf("%.0f", r.Rating), fmt.Sprintf("%.0f", r.RD), fmt.Sprint(r.Games)})
	}
	pterm.DefaultSection.Printfln("Session ratings (%d games)", played)
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
