// Package main provides the PEView CLI tool.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ZacharyZcR/PEView/internal/cli"
	"github.com/ZacharyZcR/PEView/internal/pe"
	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
	"github.com/glaslos/ssdeep"
)

var (
	verbose   = flag.Bool("v", false, "详细模式：显示每个节点的所有字段")
	maxDepth  = flag.Int("depth", 0, "结构树最大显示深度（0 表示不限制）")
	dumpModel = flag.Bool("dump", false, "以 Go 结构形式输出完整解析结果")
	fuzzyHash = flag.Bool("hash", false, "计算文件的 ssdeep 模糊哈希")
	compare   = flag.Bool("compare", false, "使用 saferwall/pe 交叉验证解析结果")
	noColor   = flag.Bool("no-color", false, "禁用彩色输出")

	maxStringLength = flag.Int("max-string", pe.DefaultOptions().MaxStringLength, "名称字符串最大长度")
	maxEntries      = flag.Int("max-entries", pe.DefaultOptions().MaxEntries, "单个表最多解析的项数")
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if *noColor {
		color.NoColor = true
	}

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	if err := viewPE(flag.Arg(0)); err != nil {
		red := color.New(color.FgRed, color.Bold)
		_, _ = red.Fprintf(os.Stderr, "\n错误: %v\n\n", err)
		os.Exit(1)
	}
}

func viewPE(filepath string) error {
	reader, err := pe.Open(filepath)
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	opts := pe.Options{
		MaxStringLength: *maxStringLength,
		MaxEntries:      *maxEntries,
	}
	model, err := reader.Build(opts)
	if err != nil {
		return fmt.Errorf("解析失败: %w", err)
	}

	if *dumpModel {
		spew.Fdump(os.Stdout, model)
		return nil
	}

	reporter := cli.NewReporter(model, reader.FilePath(), reader.FileSize())
	reporter.SetVerbose(*verbose)
	reporter.SetMaxDepth(*maxDepth)
	reporter.Print(os.Stdout)

	if *fuzzyHash {
		printFuzzyHash(reader.Bytes())
	}

	if *compare {
		ref, err := cli.ReferenceCounts(reader.Bytes())
		if err != nil {
			yellow := color.New(color.FgYellow)
			_, _ = yellow.Printf("⚠️  交叉验证跳过: %v\n\n", err)
		} else {
			cli.PrintComparison(os.Stdout, cli.ModelCounts(model), ref)
		}
	}

	return nil
}

func printFuzzyHash(data []byte) {
	yellow := color.New(color.FgYellow, color.Bold)
	_, _ = yellow.Println("【模糊哈希】")

	hash, err := ssdeep.FuzzyBytes(data)
	if err != nil {
		gray := color.New(color.FgHiBlack)
		_, _ = gray.Printf("  无法计算 ssdeep: %v\n\n", err)
		return
	}
	fmt.Printf("  %-20s: %s\n\n", "ssdeep", hash)
}

func printUsage() {
	cyan := color.New(color.FgCyan, color.Bold)
	_, _ = cyan.Println("\nPEView - PE文件结构查看工具")

	fmt.Println("\n用法:")
	fmt.Println("  peview [选项] <PE文件路径>")
	fmt.Println("\n选项:")
	fmt.Println("  -v              详细模式：显示每个节点的所有字段")
	fmt.Println("  -depth N        结构树最大显示深度（默认: 0，不限制）")
	fmt.Println("  -dump           以 Go 结构形式输出完整解析结果")
	fmt.Println("  -hash           计算 ssdeep 模糊哈希")
	fmt.Println("  -compare        使用 saferwall/pe 交叉验证节区、导入、导出和重定位数量")
	fmt.Println("  -no-color       禁用彩色输出")
	fmt.Println("  -max-string N   名称字符串最大长度（默认: 256）")
	fmt.Println("  -max-entries N  单个表最多解析的项数（默认: 10000）")

	fmt.Println("\n示例:")
	fmt.Println("  peview notepad.exe")
	fmt.Println("  peview -v -depth 3 kernel32.dll")
	fmt.Println("  peview -hash -compare program.exe")
	fmt.Println()
}
