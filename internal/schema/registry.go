package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrRegistrySealed は封印後のレジストリに登録しようとしたことを表す。
var ErrRegistrySealed = errors.New("レジストリは封印済みです")

// Registry は検証済みのルート定義をルートパスをキーに保持する。
// 起動時に一度だけ構築し、Seal以降は読み取り専用になる。
// 書き込みが無くなった後の並行読み取りにロックは不要。
type Registry struct {
	routes map[string]RouteDefinition
	sealed bool
}

// NewRegistry はルート定義を登録して封印済みのレジストリを生成する。
func NewRegistry(defs ...RouteDefinition) (*Registry, error) {
	r := &Registry{routes: make(map[string]RouteDefinition, len(defs))}
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			return nil, err
		}
	}
	r.Seal()
	return r, nil
}

// Register はルート定義を登録する。同じルートの二重登録と、
// パスパラメータ記法を含むルートはエラー。
func (r *Registry) Register(def RouteDefinition) error {
	if r.sealed {
		return ErrRegistrySealed
	}
	if strings.ContainsAny(def.Route, routeWildcards) {
		return fmt.Errorf("ルートにパスパラメータ記法は使えません: %s", def.Route)
	}
	if r.routes == nil {
		r.routes = make(map[string]RouteDefinition)
	}
	if _, exists := r.routes[def.Route]; exists {
		return fmt.Errorf("ルートが重複しています: %s", def.Route)
	}
	r.routes[def.Route] = def
	return nil
}

// Seal はレジストリを読み取り専用にする。
func (r *Registry) Seal() {
	r.sealed = true
}

// Lookup はルートとメソッドに一致するルート定義を返す。
func (r *Registry) Lookup(route, method string) (RouteDefinition, bool) {
	def, ok := r.routes[route]
	if !ok || def.Method != method {
		return RouteDefinition{}, false
	}
	return def, true
}

// All は全てのルート定義をルートの辞書順で返す。
func (r *Registry) All() []RouteDefinition {
	defs := make([]RouteDefinition, 0, len(r.routes))
	for _, def := range r.routes {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Route < defs[j].Route
	})
	return defs
}

// Len は登録済みのルート数を返す。
func (r *Registry) Len() int {
	return len(r.routes)
}
