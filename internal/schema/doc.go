// Package schema はスキーマディレクトリからルート定義を読み込む。
//
// ルートディレクトリ配下の各ディレクトリが schema.json（変換テンプレート）と
// 任意の options.json（メソッド、アクセス制御、転送先）を持ち、ディレクトリの
// 相対パスがそのままURLパスになる。読み込んだ定義は Registry に登録し、
// 起動後は読み取り専用で参照する。
package schema
