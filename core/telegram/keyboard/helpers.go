// Package keyboard builds reply keyboards for menu style bots.
package keyboard

import tele "gopkg.in/telebot.v4"

// Remove hides the client's reply keyboard.
func Remove() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}

// Column places one button per row, preserving label order.
func Column(labels []string) *tele.ReplyMarkup {
	return Grid(labels, 1)
}

// Grid lays labels out left to right, perRow buttons per row. The last row
// may be shorter. perRow below 1 is treated as 1. The keyboard is selective:
// in groups only the user being replied to sees it.
func Grid(labels []string, perRow int) *tele.ReplyMarkup {
	perRow = max(perRow, 1)
	markup := &tele.ReplyMarkup{ResizeKeyboard: true, Selective: true}
	rows := make([]tele.Row, 0, (len(labels)+perRow-1)/perRow)
	for start := 0; start < len(labels); start += perRow {
		end := min(start+perRow, len(labels))
		btns := make([]tele.Btn, 0, end-start)
		for _, label := range labels[start:end] {
			btns = append(btns, markup.Text(label))
		}
		rows = append(rows, markup.Row(btns...))
	}
	markup.Reply(rows...)
	return markup
}
