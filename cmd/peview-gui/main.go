// Package main provides the PEView GUI application.
package main

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/ZacharyZcR/PEView/internal/gui"
	"github.com/ZacharyZcR/PEView/internal/pe"
)

// viewer holds the window state. All fields are touched on the UI goroutine
// only.
type viewer struct {
	window      fyne.Window
	tree        *gui.Tree
	treeWidget  *widget.Tree
	diagnostics []string
	diagList    *widget.List
	pathEntry   *widget.Entry
	statusLabel *widget.Label
}

func main() {
	myApp := app.New()
	myWindow := myApp.NewWindow("PEView - PE文件结构查看工具")
	myWindow.Resize(fyne.NewSize(1000, 750))

	v := &viewer{window: myWindow, tree: gui.NewTree(nil)}

	v.pathEntry = widget.NewEntry()
	v.pathEntry.SetPlaceHolder("选择或拖入PE文件...")
	v.statusLabel = widget.NewLabel("就绪")

	v.treeWidget = widget.NewTree(
		func(uid widget.TreeNodeID) []widget.TreeNodeID {
			return v.tree.ChildUIDs(uid)
		},
		func(uid widget.TreeNodeID) bool {
			return v.tree.IsBranch(uid)
		},
		func(branch bool) fyne.CanvasObject {
			label := widget.NewLabel("")
			label.TextStyle = fyne.TextStyle{Monospace: true}
			return label
		},
		func(uid widget.TreeNodeID, branch bool, o fyne.CanvasObject) {
			o.(*widget.Label).SetText(v.tree.Text(uid))
		},
	)

	v.diagList = widget.NewList(
		func() int {
			return len(v.diagnostics)
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("")
		},
		func(id widget.ListItemID, o fyne.CanvasObject) {
			o.(*widget.Label).SetText(v.diagnostics[id])
		},
	)

	fileButton := widget.NewButton("选择文件", func() {
		dialog.ShowFileOpen(func(file fyne.URIReadCloser, err error) {
			if err != nil || file == nil {
				return
			}
			defer func() { _ = file.Close() }()
			v.load(file.URI().Path())
		}, myWindow)
	})

	reloadButton := widget.NewButton("重新解析", func() {
		if v.pathEntry.Text == "" {
			dialog.ShowError(fmt.Errorf("请先选择PE文件"), myWindow)
			return
		}
		v.load(v.pathEntry.Text)
	})

	myWindow.SetOnDropped(func(_ fyne.Position, uris []fyne.URI) {
		if len(uris) == 0 {
			return
		}
		v.load(uris[0].Path())
	})

	// Layout
	fileBox := container.NewBorder(nil, nil, nil,
		container.NewHBox(fileButton, reloadButton), v.pathEntry)

	diagBox := container.NewBorder(
		widget.NewLabel("诊断信息:"), nil, nil, nil,
		v.diagList,
	)

	split := container.NewVSplit(v.treeWidget, diagBox)
	split.Offset = 0.8

	mainContent := container.NewBorder(
		container.NewVBox(
			widget.NewLabel("PE文件路径:"),
			fileBox,
			widget.NewSeparator(),
		),
		container.NewVBox(
			widget.NewSeparator(),
			v.statusLabel,
		),
		nil,
		nil,
		split,
	)

	myWindow.SetContent(mainContent)
	myWindow.ShowAndRun()
}

// load decodes path off the UI goroutine and swaps the result in.
func (v *viewer) load(path string) {
	v.pathEntry.SetText(path)
	v.statusLabel.SetText("正在解析...")

	go func() {
		model, size, err := decodeFile(path)
		fyne.Do(func() {
			if err != nil {
				dialog.ShowError(err, v.window)
				v.statusLabel.SetText("解析失败")
				return
			}
			v.show(model)
			v.statusLabel.SetText(fmt.Sprintf("解析完成: %d 字节, %d 个顶层节点, %d 条诊断",
				size, len(model.Roots), len(model.Diagnostics)))
		})
	}()
}

func (v *viewer) show(model *pe.Model) {
	v.tree = gui.NewTree(model)
	v.diagnostics = v.tree.Diagnostics()

	v.treeWidget.Refresh()
	v.treeWidget.UnselectAll()
	v.treeWidget.CloseAllBranches()
	if len(model.Roots) > 0 {
		v.treeWidget.OpenBranch("0")
	}
	v.diagList.Refresh()
}

func decodeFile(path string) (*pe.Model, int64, error) {
	reader, err := pe.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = reader.Close() }()

	model, err := reader.Build(pe.DefaultOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("解析失败: %w", err)
	}
	return model, reader.FileSize(), nil
}
