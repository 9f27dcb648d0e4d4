package model

// OnlineTransformer はサンプル単位で統計量を更新できる変換器のインターフェース
type OnlineTransformer interface {
	// LearnOne は1サンプル分の統計量を更新する
	LearnOne(x []float64, weight float64)

	// TransformOne は現在の統計量で1サンプルを変換する
	TransformOne(x []float64) []float64
}
