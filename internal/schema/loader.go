package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
)

const (
	// schemaFileName はルート定義（テンプレート）のファイル名。大文字小文字は区別しない。
	schemaFileName = "schema.json"
	// optionsFileName はルートのオプションのファイル名。大文字小文字は区別しない。
	optionsFileName = "options.json"
)

// Node はスキーマディレクトリの1つのディレクトリを表す。
// ルート定義を持ちつつ子ディレクトリを持つこともできる。
type Node struct {
	// Dir はルートディレクトリからの相対パス。ルートは "."。
	Dir string
	// Route はこのディレクトリのルート定義。持たない場合はnil。
	Route *RouteDefinition
	// Children はサブディレクトリ。ディレクトリ名の辞書順。
	Children []*Node
}

// LoadResult はスキーマディレクトリの読み込み結果。
type LoadResult struct {
	// Root はディレクトリツリー。
	Root *Node
	// Routes は正常に読み込めたルート定義。Route の辞書順。
	Routes []RouteDefinition
	// Problems は読み込めなかったディレクトリやファイルの一覧。
	// *EmptyLeafError または ValidationErrors を要素とする。
	Problems []error
}

// HasProblems は1件でも問題があったかを返す。
func (r *LoadResult) HasProblems() bool {
	return len(r.Problems) > 0
}

// ConfigurationErrors はProblemsのうちファイル内容の不正だけを返す。
func (r *LoadResult) ConfigurationErrors() []*ConfigurationError {
	var out []*ConfigurationError
	for _, p := range r.Problems {
		if v, ok := AsValidationErrors(p); ok {
			out = append(out, v...)
		}
	}
	return out
}

// EmptyLeaves はProblemsのうち空のディレクトリだけを返す。
func (r *LoadResult) EmptyLeaves() []*EmptyLeafError {
	var out []*EmptyLeafError
	for _, p := range r.Problems {
		var leaf *EmptyLeafError
		if errors.As(p, &leaf) {
			out = append(out, leaf)
		}
	}
	return out
}

// LoadDir はOS上のディレクトリからルート定義を読み込む。
func LoadDir(dir string) (*LoadResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("スキーマディレクトリの参照に失敗: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("スキーマディレクトリではありません: %s", dir)
	}
	return Load(os.DirFS(dir))
}

// Load はファイルシステムのルートから再帰的にルート定義を読み込む。
// 個々のルートの不正はProblemsに記録して読み込みを続ける。
// ルート自体が読めない場合のみエラーを返す。
func Load(fsys fs.FS) (*LoadResult, error) {
	l := &loader{fsys: fsys}
	root, err := l.walk(".")
	if err != nil {
		return nil, err
	}

	result := &LoadResult{Root: root, Problems: l.problems}
	collect(root, &result.Routes)
	sort.Slice(result.Routes, func(i, j int) bool {
		return result.Routes[i].Route < result.Routes[j].Route
	})
	return result, nil
}

// collect はツリーを深さ優先で辿ってルート定義を集める。
func collect(n *Node, out *[]RouteDefinition) {
	if n.Route != nil {
		*out = append(*out, *n.Route)
	}
	for _, c := range n.Children {
		collect(c, out)
	}
}

// routeWildcards はルーターがパスパラメータとして解釈する文字。
// ルートは常にディレクトリのパスそのものと一致させる。
const routeWildcards = ":*"

type loader struct {
	fsys     fs.FS
	problems []error
}

// walk は1つのディレクトリを読み込み、子ディレクトリへ再帰する。
func (l *loader) walk(dir string) (*Node, error) {
	entries, err := fs.ReadDir(l.fsys, dir)
	if err != nil {
		if dir == "." {
			return nil, fmt.Errorf("スキーマディレクトリの読み込みに失敗: %w", err)
		}
		l.problems = append(l.problems, ValidationErrors{{
			Path:   dir,
			Reason: ReasonMalformed,
			Err:    err,
		}})
		return &Node{Dir: dir}, nil
	}

	var schemaFile, optionsFile string
	var subdirs []string
	for _, e := range entries {
		switch {
		case e.IsDir():
			subdirs = append(subdirs, e.Name())
		case e.Type().IsRegular():
			name := strings.ToLower(e.Name())
			// 大文字小文字違いの同名ファイルは辞書順で最初のものを採用する
			if name == schemaFileName && (schemaFile == "" || e.Name() < schemaFile) {
				schemaFile = e.Name()
			}
			if name == optionsFileName && (optionsFile == "" || e.Name() < optionsFile) {
				optionsFile = e.Name()
			}
		}
	}
	sort.Strings(subdirs)

	node := &Node{Dir: dir}
	if schemaFile == "" && len(subdirs) == 0 {
		l.problems = append(l.problems, &EmptyLeafError{Path: dir})
		return node, nil
	}

	if schemaFile != "" {
		def, err := l.readRoute(dir, schemaFile, optionsFile)
		if err != nil {
			l.problems = append(l.problems, err)
		} else {
			node.Route = def
		}
	}

	for _, sub := range subdirs {
		if strings.ContainsAny(sub, routeWildcards) {
			// ルーターのパラメータ記法と衝突するため配下ごと読み込まない
			l.problems = append(l.problems, ValidationErrors{{
				Path:       path.Join(dir, sub),
				Field:      "route",
				Reason:     ReasonUnsupported,
				Suggestion: "directory name without " + routeWildcards,
			}})
			continue
		}
		child, err := l.walk(path.Join(dir, sub))
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

// readRoute はschema.jsonと（あれば）options.jsonからルート定義を生成する。
func (l *loader) readRoute(dir, schemaFile, optionsFile string) (*RouteDefinition, error) {
	schemaPath := path.Join(dir, schemaFile)
	data, err := fs.ReadFile(l.fsys, schemaPath)
	if err != nil {
		return nil, ValidationErrors{{Path: schemaPath, Reason: ReasonMalformed, Err: err}}
	}
	template, err := parseTemplate(schemaPath, data)
	if err != nil {
		return nil, err
	}

	def := &RouteDefinition{
		Route:    routePath(dir),
		Method:   defaultMethod,
		Template: template,
	}
	if optionsFile == "" {
		return def, nil
	}

	optionsPath := path.Join(dir, optionsFile)
	data, err = fs.ReadFile(l.fsys, optionsPath)
	if err != nil {
		return nil, ValidationErrors{{Path: optionsPath, Reason: ReasonMalformed, Err: err}}
	}
	opts, err := parseOptions(optionsPath, data)
	if err != nil {
		return nil, err
	}
	def.Method = opts.method
	def.AccessControl = opts.access
	def.Forward = opts.forward
	return def, nil
}

// parseTemplate はschema.jsonをテンプレートとして解釈する。JSONオブジェクトのみ受け付ける。
func parseTemplate(file string, data []byte) (map[string]any, error) {
	var decoded any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil {
		return nil, ValidationErrors{{Path: file, Reason: ReasonMalformed, Suggestion: "JSON object", Err: err}}
	}
	template, ok := decoded.(map[string]any)
	if !ok {
		return nil, ValidationErrors{{Path: file, Reason: ReasonInvalidType, Suggestion: "JSON object"}}
	}
	return template, nil
}

// routePath はディレクトリの相対パスをURLパスに変換する。
func routePath(dir string) string {
	if dir == "." {
		return "/"
	}
	return "/" + dir
}
