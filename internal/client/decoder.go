package client

import "unicode/utf8"

// Decoder 增量 UTF-8 解码：读边界处不完整的多字节序列留到下一次再输出，
// 不会产生替换字符
type Decoder struct {
	pending []byte
}

// Decode 返回可以安全输出的文本，尾部不完整的序列暂存
func (d *Decoder) Decode(p []byte) string {
	buf := make([]byte, 0, len(d.pending)+len(p))
	buf = append(buf, d.pending...)
	buf = append(buf, p...)

	cut := len(buf)
	// 最多回看 UTFMax-1 个字节找最后一个字符的起始字节
	for i := len(buf) - 1; i >= 0 && i > len(buf)-utf8.UTFMax; i-- {
		if utf8.RuneStart(buf[i]) {
			if !utf8.FullRune(buf[i:]) {
				cut = i
			}
			break
		}
	}

	d.pending = append(d.pending[:0], buf[cut:]...)
	return string(buf[:cut])
}

// Flush 流结束时丢弃无法解码的尾部，返回丢弃的字节数
func (d *Decoder) Flush() int {
	n := len(d.pending)
	d.pending = d.pending[:0]
	return n
}

// Pending 当前暂存的字节数
func (d *Decoder) Pending() int {
	return len(d.pending)
}
