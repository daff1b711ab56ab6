package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"
	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"

	"github.com/Joseda-hg/lazytrip/internal/csvcodec"
	"github.com/Joseda-hg/lazytrip/internal/db"
	"github.com/Joseda-hg/lazytrip/internal/export"
	"github.com/Joseda-hg/lazytrip/internal/generator"
	"github.com/Joseda-hg/lazytrip/internal/model"
	"github.com/Joseda-hg/lazytrip/internal/store"
	"github.com/Joseda-hg/lazytrip/internal/summary"
	"github.com/Joseda-hg/lazytrip/internal/validate"
)

const (
	viewHeader  = "header"
	viewTable   = "table"
	viewDetail  = "detail"
	viewFooter  = "footer"
	viewForm    = "form"
	viewPrompt  = "prompt"
	viewConfirm = "confirm"
	viewHelp    = "help"
	viewSummary = "summary"
)

const unusualFormatQuestion = "Date/time format looks unusual. Continue anyway? (y/n)"

type UI struct {
	items     *store.Store
	snapshots *db.Store
	generator *generator.Generator
	log       *zap.Logger
	gui       *gocui.Gui
	now       func() time.Time

	csvPath     string
	selected    int // row in display order, see storeIndex
	tableOffset int
	sortColumn  int // index into model.Columns, -1 for store order
	sortDesc    bool

	form       *formState
	prompt     *promptState
	confirm    *confirmState
	preview    *previewState
	editor     *fieldEditor
	helpActive bool
	status     string

	copyText func(text string) error
}

type formState struct {
	kind   formKind
	index  int // record being edited, -1 for a new one
	fields []formField
	cursor int
}

type promptState struct {
	title  string
	value  string
	submit func(value string)
}

// confirmState is a single-key question. Keys missing from answers are
// ignored; escape runs cancel.
type confirmState struct {
	message string
	answers map[rune]func()
	cancel  func()
}

type previewState struct {
	text   string
	origin int
}

type fieldEditor struct {
	ui *UI
}

type Options struct {
	Snapshots *db.Store
	Generator *generator.Generator
	Logger    *zap.Logger
	// CSVPath is the default file for save and load.
	CSVPath string
}

func newUI(items *store.Store, opts Options) *UI {
	ui := &UI{
		items:     items,
		snapshots: opts.Snapshots,
		generator: opts.Generator,
		log:       opts.Logger,
		csvPath:    opts.CSVPath,
		now:        time.Now,
		sortColumn: -1,
		copyText:   clipboard.WriteAll,
	}
	if ui.generator == nil {
		ui.generator = generator.New(nil)
	}
	if ui.log == nil {
		ui.log = zap.NewNop()
	}
	ui.editor = &fieldEditor{ui: ui}
	return ui
}

func Run(items *store.Store, opts Options) error {
	gui, err := gocui.NewGui(gocui.NewGuiOpts{OutputMode: gocui.OutputNormal})
	if err != nil {
		return err
	}
	defer gui.Close()

	ui := newUI(items, opts)
	ui.gui = gui

	gui.SetManagerFunc(ui.layout)
	if err := ui.bindKeys(gui); err != nil {
		return err
	}

	if err := gui.MainLoop(); err != nil && err != gocui.ErrQuit {
		return err
	}
	return nil
}

type binding struct {
	view    string
	key     any
	handler func(*gocui.Gui, *gocui.View) error
}

func (u *UI) bindings() []binding {
	return []binding{
		{"", gocui.KeyCtrlC, u.quit},
		{"", 'q', u.quitUnlessEditing},
		{"", 'a', u.addRecord},
		{"", 'e', u.editRecord},
		{"", 'd', u.deleteRecord},
		{"", 'K', u.moveRecordUp},
		{"", 'J', u.moveRecordDown},
		{"", 'G', u.openGenerate},
		{"", 'w', u.saveCSV},
		{"", 'o', u.loadCSV},
		{"", 's', u.openSummary},
		{"", 'x', u.exportSummary},
		{"", 'X', u.exportXLSX},
		{"", 'S', u.saveSnapshot},
		{"", 'R', u.restoreLatestSnapshot},
		{"", 'c', u.cycleSort},
		{"", 'C', u.reverseSort},
		{"", '?', u.toggleHelp},
		{viewTable, 'j', u.selectDown},
		{viewTable, gocui.KeyArrowDown, u.selectDown},
		{viewTable, 'k', u.selectUp},
		{viewTable, gocui.KeyArrowUp, u.selectUp},
		{viewTable, gocui.KeyEnter, u.editRecord},
		{viewForm, gocui.KeyEnter, u.submitForm},
		{viewForm, gocui.KeyTab, u.nextFormField},
		{viewForm, gocui.KeyArrowDown, u.nextFormField},
		{viewForm, gocui.KeyBacktab, u.prevFormField},
		{viewForm, gocui.KeyArrowUp, u.prevFormField},
		{viewForm, gocui.KeyEsc, u.cancelForm},
		{viewPrompt, gocui.KeyEnter, u.submitPrompt},
		{viewPrompt, gocui.KeyEsc, u.cancelPrompt},
		{viewConfirm, 'y', u.answer('y')},
		{viewConfirm, 'n', u.answer('n')},
		{viewConfirm, 'a', u.answer('a')},
		{viewConfirm, 'r', u.answer('r')},
		{viewConfirm, 'c', u.answer('c')},
		{viewConfirm, gocui.KeyEsc, u.cancelConfirm},
		{viewHelp, gocui.KeyEsc, u.toggleHelp},
		{viewSummary, 'y', u.copySummary},
		{viewSummary, 'w', u.saveSummaryFromPreview},
		{viewSummary, 'j', u.scrollSummary(1)},
		{viewSummary, gocui.KeyArrowDown, u.scrollSummary(1)},
		{viewSummary, 'k', u.scrollSummary(-1)},
		{viewSummary, gocui.KeyArrowUp, u.scrollSummary(-1)},
		{viewSummary, gocui.KeyEsc, u.closeSummary},
	}
}

func (u *UI) bindKeys(gui *gocui.Gui) error {
	for _, b := range u.bindings() {
		if err := gui.SetKeybinding(b.view, b.key, gocui.ModNone, b.handler); err != nil {
			return err
		}
	}
	return nil
}

func (u *UI) layout(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	if maxX <= 0 || maxY <= 0 {
		return nil
	}

	headerView, err := gui.SetView(viewHeader, 0, 0, maxX-1, 1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	headerView.Frame = false
	u.renderHeader(headerView)

	footerY1 := max(maxY-1, 2)
	footerY0 := max(footerY1-3, 1)
	footerView, err := gui.SetView(viewFooter, 0, footerY0, maxX-1, footerY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	footerView.Frame = false
	footerView.Wrap = true
	footerView.FgColor = gocui.ColorDefault | gocui.AttrDim
	u.renderFooter(footerView)

	bodyTop := 1
	bodyBottom := footerY0 - 1
	if bodyBottom <= bodyTop {
		return nil
	}

	tableX1 := maxX - 1
	detailX0 := maxX
	if maxX >= 100 {
		tableX1 = maxX*2/3 - 1
		detailX0 = tableX1 + 1
	}

	tableView, err := gui.SetView(viewTable, 0, bodyTop, tableX1, bodyBottom, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		tableView.TitleColor = gocui.ColorCyan
	}
	tableView.Title = fmt.Sprintf("Itinerary (%d)", u.items.Count())
	if label := sortLabel(u.sortColumn, u.sortDesc); label != "" {
		tableView.Title += " sorted by " + label
	}
	applyViewStyle(tableView, !u.inputActive(), true)
	u.renderTable(tableView)

	if detailX0 < maxX {
		detailView, err := gui.SetView(viewDetail, detailX0, bodyTop, maxX-1, bodyBottom, 0)
		if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
			return err
		}
		if goerrors.Is(err, gocui.ErrUnknownView) {
			detailView.Title = "Details"
			detailView.Wrap = true
		}
		applyViewStyle(detailView, false, false)
		u.renderDetail(detailView)
	} else {
		_ = gui.DeleteView(viewDetail)
	}

	if err := u.layoutOverlays(gui); err != nil {
		return err
	}

	current := u.activeView()
	if v := gui.CurrentView(); v == nil || v.Name() != current {
		_, _ = gui.SetCurrentView(current)
	}
	gui.Cursor = u.confirm == nil && (u.form != nil || u.prompt != nil)
	return nil
}

func (u *UI) layoutOverlays(gui *gocui.Gui) error {
	overlays := []struct {
		name   string
		active bool
		show   func(*gocui.Gui) error
	}{
		{viewHelp, u.helpActive, u.showHelp},
		{viewSummary, u.preview != nil, u.showSummary},
		{viewForm, u.form != nil, u.showForm},
		{viewPrompt, u.prompt != nil, u.showPrompt},
		{viewConfirm, u.confirm != nil, u.showConfirm},
	}
	for _, overlay := range overlays {
		if !overlay.active {
			_ = gui.DeleteView(overlay.name)
			continue
		}
		if err := overlay.show(gui); err != nil {
			return err
		}
		_, _ = gui.SetViewOnTop(overlay.name)
	}
	return nil
}

func (u *UI) activeView() string {
	switch {
	case u.confirm != nil:
		return viewConfirm
	case u.prompt != nil:
		return viewPrompt
	case u.form != nil:
		return viewForm
	case u.preview != nil:
		return viewSummary
	case u.helpActive:
		return viewHelp
	default:
		return viewTable
	}
}

func (u *UI) renderHeader(view *gocui.View) {
	view.Clear()
	source := u.csvPath
	if source == "" {
		source = "unsaved"
	}
	fmt.Fprintf(view, "lazytrip | %s | %d entries", source, u.items.Count())
}

func (u *UI) renderFooter(view *gocui.View) {
	view.Clear()
	view.SetOrigin(0, 0)

	fmt.Fprintln(view, "a add | e edit | d delete | K/J move up/down | c/C sort | G generate | ? help | q quit")
	fmt.Fprintln(view, "w save csv | o open csv | s summary | x summary txt | X xlsx | S snapshot | R restore snapshot")
	if u.status != "" {
		fmt.Fprint(view, u.status)
	}
}

func (u *UI) renderTable(view *gocui.View) {
	view.Clear()
	records := u.items.All()
	order := sortedOrder(records, u.sortColumn, u.sortDesc)
	u.selected = clampSelection(u.selected, len(records))

	widths := columnWidths(records)
	fmt.Fprintln(view, formatHeader(widths))
	if len(records) == 0 {
		fmt.Fprintln(view, "No entries. Press a to add one or G to generate a trip.")
		return
	}

	_, height := view.Size()
	rows := max(height-1, 1)
	u.tableOffset = visibleWindow(u.tableOffset, u.selected, rows, len(records))
	end := min(u.tableOffset+rows, len(records))
	for row := u.tableOffset; row < end; row++ {
		record := records[order[row]]
		line := formatRow(record.Fields(), widths)
		if !validate.LooksValid(record.Date, record.Time) {
			line = "!" + line
		} else {
			line = " " + line
		}
		fmt.Fprintln(view, line)
	}
	view.SetCursor(0, u.selected-u.tableOffset+1)
}

func (u *UI) renderDetail(view *gocui.View) {
	view.Clear()
	index := u.storeIndex(u.selected)
	record, err := u.items.Get(index)
	if err != nil {
		return
	}
	fmt.Fprint(view, formatDetail(index, record))
}

// storeIndex maps a row of the (possibly sorted) table to the store index,
// or -1 when the row does not exist.
func (u *UI) storeIndex(row int) int {
	order := sortedOrder(u.items.All(), u.sortColumn, u.sortDesc)
	if row < 0 || row >= len(order) {
		return -1
	}
	return order[row]
}

// displayRow is the inverse of storeIndex.
func (u *UI) displayRow(index int) int {
	for row, i := range sortedOrder(u.items.All(), u.sortColumn, u.sortDesc) {
		if i == index {
			return row
		}
	}
	return clampSelection(index, u.items.Count())
}

func (u *UI) cycleSort(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.resort(func() {
		u.sortColumn++
		if u.sortColumn >= len(model.Columns) {
			u.sortColumn = -1
			u.sortDesc = false
		}
	})
	return nil
}

func (u *UI) reverseSort(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.sortColumn < 0 {
		return nil
	}
	u.resort(func() { u.sortDesc = !u.sortDesc })
	return nil
}

// resort changes the sort and keeps the same entry selected. The store order
// is never touched.
func (u *UI) resort(change func()) {
	index := u.storeIndex(u.selected)
	change()
	if index >= 0 {
		u.selected = u.displayRow(index)
	}
	if label := sortLabel(u.sortColumn, u.sortDesc); label != "" {
		u.status = "Sorted by " + label
	} else {
		u.status = "Showing entries in itinerary order"
	}
}

func (u *UI) selectDown(_ *gocui.Gui, _ *gocui.View) error {
	u.selected = clampSelection(u.selected+1, u.items.Count())
	return nil
}

func (u *UI) selectUp(_ *gocui.Gui, _ *gocui.View) error {
	u.selected = clampSelection(u.selected-1, u.items.Count())
	return nil
}

func (u *UI) moveRecordUp(gui *gocui.Gui, view *gocui.View) error {
	return u.moveRecord(-1)
}

func (u *UI) moveRecordDown(gui *gocui.Gui, view *gocui.View) error {
	return u.moveRecord(1)
}

// moveRecord swaps the selection with its neighbour; the selection follows
// the moved entry.
func (u *UI) moveRecord(offset int) error {
	if u.inputActive() {
		return nil
	}
	index := u.storeIndex(u.selected)
	if index < 0 {
		return nil
	}
	moved, err := u.items.Swap(index, offset)
	if err != nil {
		u.status = err.Error()
		return nil
	}
	if moved {
		u.selected = u.displayRow(index + offset)
		u.status = ""
	}
	return nil
}

func (u *UI) addRecord(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.form = &formState{kind: formRecord, index: -1, fields: buildFormFields(nil)}
	return nil
}

func (u *UI) editRecord(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	index := u.storeIndex(u.selected)
	record, err := u.items.Get(index)
	if err != nil {
		return nil
	}
	u.form = &formState{kind: formRecord, index: index, fields: buildFormFields(&record)}
	return nil
}

func (u *UI) showForm(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := min(max(60, maxX/2), maxX-2)
	height := len(u.form.fields) + 1
	x0 := max((maxX-width)/2, 0)
	y0 := max((maxY-height)/2, 0)

	view, err := gui.SetView(viewForm, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	switch {
	case u.form.kind == formGenerate:
		view.Title = "Generate itinerary"
	case u.form.index >= 0:
		view.Title = fmt.Sprintf("Edit entry %d", u.form.index+1)
	default:
		view.Title = "New entry"
	}
	view.Editable = true
	view.KeybindOnEdit = true
	view.Editor = u.editor
	u.renderForm(view)
	return nil
}

func (u *UI) renderForm(view *gocui.View) {
	if u.form == nil || view == nil {
		return
	}
	view.Clear()
	for index, field := range u.form.fields {
		prefix := "  "
		if index == u.form.cursor {
			prefix = "> "
		}
		fmt.Fprintf(view, "%s%s: %s\n", prefix, field.Label, field.Value)
	}
	current := u.form.fields[u.form.cursor]
	cursorX := runewidth.StringWidth("> "+current.Label+": ") + runewidth.StringWidth(current.Value)
	view.SetCursor(cursorX, u.form.cursor)
}

func (u *UI) nextFormField(_ *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	u.form.cursor = min(u.form.cursor+1, len(u.form.fields)-1)
	u.renderForm(view)
	return nil
}

func (u *UI) prevFormField(_ *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	u.form.cursor = max(u.form.cursor-1, 0)
	u.renderForm(view)
	return nil
}

func (u *UI) cancelForm(_ *gocui.Gui, _ *gocui.View) error {
	u.form = nil
	u.status = ""
	return nil
}

func (u *UI) submitForm(_ *gocui.Gui, _ *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.kind == formGenerate {
		u.submitGenerate()
		return nil
	}

	record := parseFormFields(u.form.fields)
	if err := validate.Required(record); err != nil {
		u.status = err.Error()
		return nil
	}
	if validate.LooksValid(record.Date, record.Time) {
		u.storeFormRecord(record)
		return nil
	}

	u.confirm = &confirmState{
		message: unusualFormatQuestion,
		answers: map[rune]func(){
			'y': func() { u.storeFormRecord(record) },
			'n': func() { u.status = "Fix the date or time and press enter" },
		},
	}
	return nil
}

func (u *UI) storeFormRecord(record model.Record) {
	if u.form == nil {
		return
	}
	if u.form.index < 0 {
		index := u.items.Insert(record)
		u.selected = u.displayRow(index)
		u.status = "Added " + describeRecord(index, record)
	} else {
		if err := u.items.Update(u.form.index, record); err != nil {
			u.status = err.Error()
			return
		}
		u.selected = u.displayRow(u.form.index)
		u.status = "Updated " + describeRecord(u.form.index, record)
	}
	u.form = nil
}

func (u *UI) deleteRecord(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	index := u.storeIndex(u.selected)
	record, err := u.items.Get(index)
	if err != nil {
		return nil
	}

	u.confirm = &confirmState{
		message: fmt.Sprintf("Delete %s? (y/n)", describeRecord(index, record)),
		answers: map[rune]func(){
			'y': func() {
				if err := u.items.Delete(index); err != nil {
					u.status = err.Error()
					return
				}
				u.selected = clampSelection(u.selected, u.items.Count())
				u.status = "Deleted " + describeRecord(index, record)
			},
			'n': func() { u.status = "" },
		},
	}
	return nil
}

func (u *UI) openGenerate(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	city := ""
	if record, err := u.items.Get(u.storeIndex(u.selected)); err == nil {
		city = record.City
	}
	u.form = &formState{kind: formGenerate, index: -1, fields: buildGenerateFields(city)}
	return nil
}

func (u *UI) submitGenerate() {
	input, err := parseGenerateFields(u.form.fields, u.now())
	if err != nil {
		u.status = err.Error()
		return
	}
	records, err := u.generator.Generate(input.City, input.Days, input.Start)
	if err != nil {
		u.status = err.Error()
		return
	}

	apply := func(mode generator.Mode) func() {
		return func() {
			added := generator.Apply(u.items, records, mode)
			u.form = nil
			if mode == generator.Cancel {
				u.status = "Generation cancelled"
				return
			}
			if mode == generator.Replace {
				u.selected = 0
			}
			u.status = fmt.Sprintf("Generated %d entries for %s (%s)", added, input.City, mode)
			u.log.Info("itinerary_generated",
				zap.String("city", input.City),
				zap.Int("days", input.Days),
				zap.Stringer("mode", mode),
				zap.Int("added", added),
			)
		}
	}

	u.confirm = &confirmState{
		message: fmt.Sprintf("%d entries for %s. Append, replace or cancel? (a/r/c)", len(records), input.City),
		answers: map[rune]func(){
			'a': apply(generator.Append),
			'r': apply(generator.Replace),
			'c': apply(generator.Cancel),
		},
		cancel: apply(generator.Cancel),
	}
}

func (u *UI) showConfirm(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := min(max(runewidth.StringWidth(u.confirm.message)+4, 40), maxX-2)
	x0 := max((maxX-width)/2, 0)
	y0 := max(maxY/2-1, 0)

	view, err := gui.SetView(viewConfirm, x0, y0, x0+width, y0+2, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	view.Title = "Confirm"
	view.Wrap = true
	view.FrameColor = gocui.ColorYellow
	view.Clear()
	fmt.Fprint(view, u.confirm.message)
	return nil
}

func (u *UI) answer(key rune) func(*gocui.Gui, *gocui.View) error {
	return func(_ *gocui.Gui, _ *gocui.View) error {
		if u.confirm == nil {
			return nil
		}
		action, ok := u.confirm.answers[key]
		if !ok {
			return nil
		}
		u.confirm = nil
		action()
		return nil
	}
}

func (u *UI) cancelConfirm(_ *gocui.Gui, _ *gocui.View) error {
	if u.confirm == nil {
		return nil
	}
	cancel := u.confirm.cancel
	u.confirm = nil
	if cancel != nil {
		cancel()
	}
	return nil
}

func (u *UI) openPrompt(title, value string, submit func(string)) {
	u.prompt = &promptState{title: title, value: value, submit: submit}
}

func (u *UI) showPrompt(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := min(max(60, maxX/2), maxX-2)
	x0 := max((maxX-width)/2, 0)
	y0 := max(maxY/2-1, 0)

	view, err := gui.SetView(viewPrompt, x0, y0, x0+width, y0+2, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	view.Title = u.prompt.title
	view.Editable = true
	view.KeybindOnEdit = true
	view.Editor = u.editor
	view.Clear()
	fmt.Fprint(view, u.prompt.value)
	view.SetCursor(runewidth.StringWidth(u.prompt.value), 0)
	return nil
}

func (u *UI) submitPrompt(_ *gocui.Gui, _ *gocui.View) error {
	if u.prompt == nil {
		return nil
	}
	prompt := u.prompt
	value := strings.TrimSpace(prompt.value)
	if value == "" {
		u.status = prompt.title + ": a value is required"
		return nil
	}
	u.prompt = nil
	prompt.submit(value)
	return nil
}

func (u *UI) cancelPrompt(_ *gocui.Gui, _ *gocui.View) error {
	u.prompt = nil
	return nil
}

func (u *UI) saveCSV(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.openPrompt("Save CSV as", u.csvPath, func(path string) {
		records := u.items.All()
		if err := csvcodec.WriteFile(path, records); err != nil {
			u.fail("csv_save_failed", path, err)
			return
		}
		u.csvPath = path
		u.status = fmt.Sprintf("Saved %d entries to %s", len(records), path)
		u.log.Info("csv_saved", zap.String("path", path), zap.Int("records", len(records)))
	})
	return nil
}

func (u *UI) loadCSV(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.openPrompt("Open CSV", u.csvPath, func(path string) {
		records, err := csvcodec.ReadFile(path)
		if err != nil {
			u.fail("csv_load_failed", path, err)
			return
		}
		u.items.Replace(records)
		u.csvPath = path
		u.selected = 0
		u.tableOffset = 0
		u.status = fmt.Sprintf("Loaded %d entries from %s", len(records), path)
		u.log.Info("csv_loaded", zap.String("path", path), zap.Int("records", len(records)))
	})
	return nil
}

func (u *UI) exportSummary(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.promptSummaryPath()
	return nil
}

func (u *UI) promptSummaryPath() {
	u.openPrompt("Save summary as", pathWithExt(u.csvPath, ".txt"), func(path string) {
		if err := summary.WriteFile(path, u.items.All()); err != nil {
			u.fail("summary_export_failed", path, err)
			return
		}
		u.status = "Summary written to " + path
		u.log.Info("summary_exported", zap.String("path", path))
	})
}

// openSummary shows the text summary in store order, the same text that
// "x" saves.
func (u *UI) openSummary(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.preview = &previewState{text: summary.Format(u.items.All())}
	return nil
}

func (u *UI) showSummary(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := min(max(70, maxX*3/4), maxX-2)
	height := max(maxY-6, 3)
	x0 := max((maxX-width)/2, 0)
	y0 := max((maxY-height)/2, 0)

	view, err := gui.SetView(viewSummary, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "Summary (y copy | w save | esc close)"
		view.Wrap = true
	}
	view.Clear()
	fmt.Fprint(view, u.preview.text)
	view.SetOrigin(0, u.preview.origin)
	return nil
}

func (u *UI) scrollSummary(delta int) func(*gocui.Gui, *gocui.View) error {
	return func(_ *gocui.Gui, _ *gocui.View) error {
		if u.preview == nil {
			return nil
		}
		lines := strings.Count(u.preview.text, "\n")
		u.preview.origin = max(0, min(u.preview.origin+delta, lines-1))
		return nil
	}
}

func (u *UI) copySummary(_ *gocui.Gui, _ *gocui.View) error {
	if u.preview == nil {
		return nil
	}
	text := u.preview.text
	u.preview = nil
	if err := u.copyText(text); err != nil {
		u.status = "Clipboard error: " + err.Error()
		u.log.Warn("summary_copy_failed", zap.Error(err))
		return nil
	}
	u.status = "Summary copied to clipboard"
	u.log.Info("summary_copied", zap.Int("bytes", len(text)))
	return nil
}

func (u *UI) saveSummaryFromPreview(_ *gocui.Gui, _ *gocui.View) error {
	if u.preview == nil {
		return nil
	}
	u.preview = nil
	u.promptSummaryPath()
	return nil
}

func (u *UI) closeSummary(_ *gocui.Gui, _ *gocui.View) error {
	u.preview = nil
	return nil
}

func (u *UI) exportXLSX(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.openPrompt("Save spreadsheet as", pathWithExt(u.csvPath, ".xlsx"), func(path string) {
		if err := export.SaveXLSX(path, u.items.All()); err != nil {
			u.fail("xlsx_export_failed", path, err)
			return
		}
		u.status = "Spreadsheet written to " + path
		u.log.Info("xlsx_exported", zap.String("path", path))
	})
	return nil
}

func (u *UI) saveSnapshot(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if u.snapshots == nil {
		u.status = "Snapshots are not enabled"
		return nil
	}
	name := "trip " + u.now().Format("2006-01-02 15:04")
	u.openPrompt("Snapshot name", name, func(name string) {
		snapshot, err := u.snapshots.SaveSnapshot(context.Background(), name, u.items.All())
		if err != nil {
			u.fail("snapshot_save_failed", name, err)
			return
		}
		u.status = fmt.Sprintf("Snapshot %q saved with %d entries", snapshot.Name, snapshot.Count)
		u.log.Info("snapshot_saved", zap.Stringer("id", snapshot.ID), zap.Int("records", snapshot.Count))
	})
	return nil
}

func (u *UI) restoreLatestSnapshot(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if u.snapshots == nil {
		u.status = "Snapshots are not enabled"
		return nil
	}
	latest, err := u.snapshots.LatestSnapshot(context.Background())
	if err != nil {
		u.status = err.Error()
		return nil
	}

	u.confirm = &confirmState{
		message: fmt.Sprintf("Replace the itinerary with snapshot %q (%d entries)? (y/n)", latest.Name, latest.Count),
		answers: map[rune]func(){
			'y': func() {
				records, err := u.snapshots.LoadSnapshot(context.Background(), latest.ID)
				if err != nil {
					u.fail("snapshot_restore_failed", latest.Name, err)
					return
				}
				u.items.Replace(records)
				u.selected = 0
				u.tableOffset = 0
				u.status = fmt.Sprintf("Restored snapshot %q", latest.Name)
			},
			'n': func() { u.status = "" },
		},
	}
	return nil
}

func (u *UI) fail(event, target string, err error) {
	u.status = err.Error()
	u.log.Warn(event, zap.String("target", target), zap.Error(err))
}

func (u *UI) toggleHelp(_ *gocui.Gui, _ *gocui.View) error {
	if u.form != nil || u.prompt != nil || u.confirm != nil || u.preview != nil {
		return nil
	}
	u.helpActive = !u.helpActive
	return nil
}

func (u *UI) showHelp(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := min(max(60, maxX/2), maxX-2)
	height := min(20, maxY-2)
	x0 := max((maxX-width)/2, 0)
	y0 := max((maxY-height)/2, 0)

	view, err := gui.SetView(viewHelp, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "Help"
		view.Wrap = true
	}
	view.Clear()
	fmt.Fprint(view, helpText())
	return nil
}

func (e *fieldEditor) Edit(view *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	target := e.ui.editTarget()
	if target == nil {
		return false
	}

	switch key {
	case gocui.KeyBackspace, gocui.KeyBackspace2:
		runes := []rune(*target)
		if len(runes) > 0 {
			*target = string(runes[:len(runes)-1])
		}
	case gocui.KeySpace:
		*target += " "
	case gocui.KeyCtrlU:
		*target = ""
	}
	if ch != 0 && ch != '\n' && ch != '\r' && mod == 0 {
		*target += string(ch)
	}

	if e.ui.prompt == nil {
		e.ui.renderForm(view)
	}
	return true
}

// editTarget is the text the editor is changing: the prompt when one is
// open, otherwise the focused form field.
func (u *UI) editTarget() *string {
	if u.confirm != nil {
		return nil
	}
	if u.prompt != nil {
		return &u.prompt.value
	}
	if u.form != nil {
		return &u.form.fields[u.form.cursor].Value
	}
	return nil
}

func (u *UI) inputActive() bool {
	return u.form != nil || u.prompt != nil || u.confirm != nil || u.preview != nil || u.helpActive
}

func (u *UI) quitUnlessEditing(gui *gocui.Gui, view *gocui.View) error {
	if u.form != nil || u.prompt != nil || u.confirm != nil {
		return nil
	}
	if u.preview != nil {
		u.preview = nil
		return nil
	}
	if u.helpActive {
		u.helpActive = false
		return nil
	}
	return u.quit(gui, view)
}

func (u *UI) quit(_ *gocui.Gui, _ *gocui.View) error {
	return gocui.ErrQuit
}

func helpText() string {
	return strings.Join([]string{
		"Navigation:",
		"  j/k or arrows move the selection",
		"",
		"Entries:",
		"  a add | e or enter edit | d delete (asks y/n)",
		"  K move up | J move down",
		"  c sort by the next column | C reverse the sort",
		"  G generate a trip for a city (then a/r/c: append, replace, cancel)",
		"",
		"Files:",
		"  w save CSV | o open CSV",
		"  s show summary (then y copy, w save) | x save summary as text",
		"  X save spreadsheet",
		"  S save snapshot | R restore latest snapshot",
		"",
		"Forms:",
		"  tab/arrows next field | enter save | esc cancel | ctrl-u clear field",
		"",
		"  ? or esc close help | q quit",
	}, "\n")
}

func applyViewStyle(view *gocui.View, focused bool, highlight bool) {
	view.Frame = true
	view.Highlight = focused && highlight
	view.HighlightInactive = false
	view.SelBgColor = gocui.ColorBlue
	view.SelFgColor = gocui.ColorBlack
	view.InactiveViewSelBgColor = gocui.ColorDefault
	if focused {
		view.FrameColor = gocui.ColorCyan
		view.TitleColor = gocui.ColorCyan
	} else {
		view.FrameColor = gocui.ColorDefault
	}
}
