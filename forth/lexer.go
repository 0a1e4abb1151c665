package forth

import "strconv"

// parseNum parses a word the dictionary lookup missed as an integer
// literal, accepting decimal, 0x-prefixed hex, and 0-prefixed octal —
// the same %li-style grammar as the firmware's zf_host_parse_num.
func parseNum(word string) (cell, error) {
	v, err := strconv.ParseInt(word, 0, 64)
	if err != nil {
		return 0, err
	}
	return cell(v), nil
}
