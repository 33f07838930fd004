package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Input":    "入力",
		"Decoding": "デコード",
		"Output":   "出力",
		"Logging":  "ログ",

		// Commands
		"Decode compressed video streams into raw I420 frames":      "圧縮動画ストリームを I420 フレームにデコード",
		"Decode a compressed stream":                                "圧縮ストリームをデコード",
		"Write a synthetic stream for the soft engine":              "soft エンジン用の合成ストリームを書き出す",
		"Show engine availability and describe an MP4 or IVF input": "エンジンの利用可否とMP4/IVF入力の情報を表示",

		// Decode flags
		"YAML configuration file":                                                 "YAML設定ファイル",
		"Input file, or - for standard input":                                     "入力ファイル（- で標準入力）",
		"Input format (annexb, mp4, rtp, ivf)":                                    "入力フォーマット（annexb, mp4, rtp, ivf）",
		"Bytes per chunk read from annexb input":                                  "annexb 入力から読み込むチャンクのバイト数",
		"Input framing (packetized, raw); defaults to the input format's framing": "入力フレーミング（packetized, raw）。省略時は入力フォーマットに従う",
		"Decode engine (libde265, soft, vp8)":                                     "デコードエンジン（libde265, soft, vp8）",
		"Output frame rate override as N/D (0/1 keeps the input rate)":            "出力フレームレートの上書き N/D（0/1 で入力のレートを維持）",
		"Decoder worker threads (0 = number of CPUs)":                             "デコーダのワーカースレッド数（0 = CPU数）",
		"Picture queue capacity of the soft engine":                               "soft エンジンのピクチャキュー容量",
		"Raw I420 output file (frames are discarded when empty)":                  "I420 出力ファイル（空の場合はフレームを破棄）",
		"Directory for BMP snapshots":                                             "BMPスナップショットの保存先",
		"Save a snapshot every N frames":                                          "Nフレームごとにスナップショットを保存",
		"Output execution summary to file (Markdown format)":                      "実行サマリーをファイルに出力（Markdown形式）",

		// Gen flags
		"Output file path (required)":                              "出力ファイルパス（必須）",
		"Output format (annexb, packetized, rtp)":                  "出力フォーマット（annexb, packetized, rtp）",
		"Picture width":                                            "ピクチャの幅",
		"Picture height":                                           "ピクチャの高さ",
		"Number of pictures":                                       "ピクチャ数",
		"Frame rate used for RTP timestamps":                       "RTPタイムスタンプに使うフレームレート",
		"Double the picture size from this picture on (0 = never)": "このピクチャ以降のサイズを2倍にする（0 = しない）",
		"Insert an engine warning every N pictures (0 = never)":    "Nピクチャごとにエンジン警告を挿入（0 = しない）",
		"RTP packet size limit":                                    "RTPパケットサイズの上限",

		// Logging flags
		"Log level (debug, info, warn, error)": "ログレベル（debug, info, warn, error）",
		"Suppress all log output":              "全てのログ出力を抑制",

		// Info output
		"libde265: version %s":             "libde265: バージョン %s",
		"libde265: not available (set %s)": "libde265: 利用不可（%s を設定してください）",
		"libvpx: version %s":               "libvpx: バージョン %s",
		"libvpx: not available (set %s)":   "libvpx: 利用不可（%s を設定してください）",
		"soft: always available":           "soft: 常に利用可能",
		"Size: %dx%d":                      "サイズ: %dx%d",
		"Frames: %d":                       "フレーム数: %d",
		"Codec: %s":                        "コーデック: %s",
		"This codec cannot be decoded":     "このコーデックはデコードできません",
		"Samples: %d":                      "サンプル数: %d",
		"Frame rate: %s (%.2f fps)":        "フレームレート: %s (%.2f fps)",

		// Errors
		"Error: %s":                        "エラー: %s",
		"an input file is required":        "入力ファイルが必要です",
		"input file %s does not exist":     "入力ファイル %s が存在しません",
		"at least one picture is required": "ピクチャ数は1以上にしてください",
		"fps and mtu must be positive":     "fps と mtu は正の値にしてください",

		// Summary content
		"Decode Summary":             "デコードサマリー",
		"Generated":                  "生成日時",
		"Stream failed":              "ストリーム失敗",
		"Counters":                   "カウンタ",
		"Timing":                     "時間",
		"Item":                       "項目",
		"Counter":                    "カウンタ",
		"Value":                      "値",
		"Stream":                     "ストリーム",
		"Format":                     "フォーマット",
		"Framing":                    "フレーミング",
		"Engine":                     "エンジン",
		"Threads":                    "スレッド数",
		"Geometry":                   "解像度",
		"not negotiated":             "未確定",
		"Frame rate":                 "フレームレート",
		"Snapshots":                  "スナップショット",
		"Chunks":                     "チャンク数",
		"Bytes in":                   "入力バイト数",
		"Bytes fed":                  "投入バイト数",
		"Frames":                     "フレーム数",
		"Renegotiations":             "再ネゴシエーション",
		"Engine warnings":            "エンジン警告",
		"Framing errors":             "フレーミングエラー",
		"Backlog events":             "キュー満杯",
		"Flushes":                    "フラッシュ",
		"%d (%d pictures discarded)": "%d（%d ピクチャ破棄）",
		"Duration":                   "所要時間",
		"Throughput":                 "スループット",
	})
}
