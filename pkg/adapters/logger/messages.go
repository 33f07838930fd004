package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Stream lifecycle (info)
		"Stream started with %s engine (%s framing)": "%s エンジンでストリームを開始しました (%s フレーミング)",
		"Stream stopped after %d frames":             "%d フレーム出力後にストリームを停止しました",
		"Output format changed to %s":                "出力フォーマットを %s に変更しました",
		"End of stream, drained %d pictures":         "ストリーム終端: %d ピクチャを出力しました",
		"Decoded %d frames in %d ms":                 "%d フレームを %d ms でデコードしました",
		"Summary written to %s":                      "サマリーを %s に保存しました",
		"Opened %s track with %d samples":            "%s トラックを開きました (%d サンプル)",
		"Opened %s stream %dx%d with %d frames":      "%s ストリーム %dx%d を開きました (%d フレーム)",
		"Wrote %d frames (%s) to %s":                 "%d フレーム (%s) を %s に書き込みました",
		"Wrote %d pictures to %s":                    "%d ピクチャを %s に書き込みました",
		"Interrupted, shutting down...":              "中断されました。シャットダウン中...",

		// Decoder (debug)
		"Starting %d worker threads":             "%d 個のワーカースレッドを起動します",
		"Fed %d bytes: %s":                       "%d バイトを投入しました: %s",
		"Decoder picture queue full":             "デコーダのピクチャキューが満杯です",
		"Backlog cleared":                        "滞留ピクチャを出力し終えました",
		"Discarded %d pending pictures":          "保留中の %d ピクチャを破棄しました",
		"Flushed decoder, %d pictures discarded": "デコーダをフラッシュしました (%d ピクチャ破棄)",
		"Decoder context released":               "デコーダコンテキストを解放しました",
		"Wrote snapshot %s":                      "スナップショット %s を保存しました",

		// Warnings
		"%s (code=%d)":                           "%s (コード=%d)",
		"Dropping malformed chunk: %s":           "不正なチャンクを破棄します: %s",
		"Lost %d RTP packets before sequence %d": "シーケンス %[2]d の前で %[1]d 個のRTPパケットが失われました",
		"Dropping RTP packet %d: %s":             "RTPパケット %d を破棄します: %s",
		"%d RTP packets were lost in total":      "合計 %d 個のRTPパケットが失われました",
		"Snapshot failed for frame %d: %s":       "フレーム %d のスナップショットに失敗しました: %s",
		"Failed to write summary: %s":            "サマリーの書き込みに失敗しました: %s",
		"No frames were decoded":                 "デコードされたフレームがありません",

		// Errors
		"Stream failed: %s": "ストリームが失敗しました: %s",
	})
}
