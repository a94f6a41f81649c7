package protocol

import "fmt"

// Compress run-length encodes a raster line using the printer's TIFF
// (packbits) scheme: a run of n >= 2 identical bytes becomes the signed
// count -(n-1) followed by the byte; a literal stretch of n bytes becomes
// the count n-1 followed by the bytes. When the encoded form would be
// longer than the raw line it falls back to one literal run covering the
// whole line, so the result never grows past len(line)+1 bytes.
func Compress(line []byte) []byte {
	if len(line) == 0 {
		return nil
	}

	out := make([]byte, 0, len(line)+1)

	i := 0
	for i < len(line) {
		// Measure the run starting at i.
		run := 1
		for i+run < len(line) && line[i+run] == line[i] && run < 128 {
			run++
		}

		if run >= 2 {
			out = append(out, byte(-(run-1)), line[i])
			i += run
			continue
		}

		// Literal stretch: extend until the next run of >= 2.
		lit := 1
		for i+lit < len(line) && lit < 128 {
			if i+lit+1 < len(line) && line[i+lit] == line[i+lit+1] {
				break
			}
			lit++
		}
		out = append(out, byte(lit-1))
		out = append(out, line[i:i+lit]...)
		i += lit
	}

	if len(out) > len(line) && len(line) <= 128 {
		// Compression did not pay for itself; send the line as one
		// literal run.
		out = out[:0]
		out = append(out, byte(len(line)-1))
		out = append(out, line...)
	}

	return out
}

// Decompress is the inverse of Compress. It rejects truncated input and
// counts that would run past the buffer.
func Decompress(data []byte) ([]byte, error) {
	var out []byte

	i := 0
	for i < len(data) {
		count := int8(data[i])
		i++

		if count < 0 {
			if i >= len(data) {
				return nil, fmt.Errorf("truncated repeat run at offset %d", i-1)
			}
			n := 1 - int(count)
			for j := 0; j < n; j++ {
				out = append(out, data[i])
			}
			i++
			continue
		}

		n := int(count) + 1
		if i+n > len(data) {
			return nil, fmt.Errorf("literal run of %d bytes overruns input at offset %d", n, i-1)
		}
		out = append(out, data[i:i+n]...)
		i += n
	}

	return out, nil
}
