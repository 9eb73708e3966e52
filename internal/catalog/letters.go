package catalog

// PieceLetter names piece idx the way the configurator labels it:
// A..Z, then AA, AB and so on.
func PieceLetter(idx int) string {
	if idx < 0 {
		return ""
	}
	var out []byte
	for n := idx + 1; n > 0; n = (n - 1) / 26 {
		out = append([]byte{byte('A' + (n-1)%26)}, out...)
	}
	return string(out)
}
