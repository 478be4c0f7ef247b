// schemagateのエントリポイント。
// スキーマディレクトリからルートを構築し、受信したJSONを変換して転送する。
package main

import "github.com/nao1215/schemagate/cmd/schemagate/cmd"

func main() {
	cmd.Execute()
}
