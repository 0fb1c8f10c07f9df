package manifest

// Serialize reconstructs the source bytes from a Document.
// The output is byte-identical to the input passed to Parse until an edit is
// applied; edits change only the bytes of the value they touch.
func Serialize(d *Document) []byte {
	buf := []byte{}
	if d.HasBOM {
		buf = append(buf, utf8BOM...)
	}
	for i, line := range d.Lines {
		buf = append(buf, line...)
		buf = append(buf, d.LineEnds[i]...)
	}
	return buf
}
