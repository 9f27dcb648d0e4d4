// Package drift はストリーム上のコンセプトドリフト検出器を提供します。
//
// すべての検出器は Detector インターフェースを実装し、1つずつ与えられる
// 実数値（通常はモデルの誤差）の分布変化を検出します。
package drift

import (
	"strings"

	"github.com/YuminosukeSato/stopcast/pkg/errors"
)

// Detector はドリフト検出器の共通インターフェース
type Detector interface {
	// Update は新しい値でドリフト検出器を更新し、この更新でドリフトを検出したかを返す
	Update(value float64) bool

	// Detected は直前の Update でドリフトを検出したかを返す
	Detected() bool

	// Estimation は検出器が監視している統計量の現在値を返す
	Estimation() float64

	// Threshold は検出に用いる閾値（信頼度パラメータ）を返す
	Threshold() float64

	// Name は検出器の名前を返す
	Name() string

	// Reset はドリフト検出器をリセット
	Reset()
}

// Factory は新しい検出器を生成する関数
type Factory func() Detector

// Detector kinds accepted by NewFactory.
const (
	KindADWIN       = "adwin"
	KindPageHinkley = "page_hinkley"
	KindDDM         = "ddm"
)

// NewFactory は種類名から警告用とドリフト用の検出器ファクトリを返す。
// 警告用の検出器はドリフト用より敏感に設定される。
func NewFactory(kind string) (warning, drift Factory, err error) {
	switch strings.ToLower(kind) {
	case KindADWIN, "":
		return func() Detector { return NewADWIN(WithADWINDelta(0.01)) },
			func() Detector { return NewADWIN(WithADWINDelta(0.001)) },
			nil
	case KindPageHinkley:
		return func() Detector { return NewPageHinkley(WithPHThreshold(25)) },
			func() Detector { return NewPageHinkley() },
			nil
	case KindDDM:
		return func() Detector { return NewDDM(WithDDMOutControlLevel(2.0)) },
			func() Detector { return NewDDM() },
			nil
	default:
		return nil, nil, errors.NewValidationError("drift_detector",
			"must be one of adwin, page_hinkley, ddm", kind)
	}
}
