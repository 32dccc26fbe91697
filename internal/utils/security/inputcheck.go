package security

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Limits bounds the strings accepted from the command line and from
// definition documents.
type Limits struct {
	MaxString int // generic string max length (names, descriptions, queries)
	MaxPath   int // file, key and path max length
	AllowNL   bool
	AllowTab  bool
}

func DefaultLimits() Limits {
	return Limits{
		MaxString: 4096,
		MaxPath:   4096,
		AllowNL:   true,
		AllowTab:  true,
	}
}

// ---------- primitive checks ----------

func ValidateString(name, s string, lim Limits) error {
	return validateRunes(name, s, lim.MaxString, lim)
}

func ValidatePath(name, s string, lim Limits) error {
	return validateRunes(name, s, lim.MaxPath, lim)
}

func validateRunes(name, s string, max int, lim Limits) error {
	if s == "" {
		return nil
	}
	if !utf8.ValidString(s) {
		return fmt.Errorf("%s: invalid UTF-8", name)
	}
	if strings.ContainsRune(s, '\x00') {
		return fmt.Errorf("%s: contains NUL byte", name)
	}
	if n := utf8.RuneCountInString(s); n > max {
		return fmt.Errorf("%s: too long (%d > %d)", name, n, max)
	}
	for _, r := range s {
		if (r == '\n' && lim.AllowNL) || (r == '\t' && lim.AllowTab) {
			continue
		}
		if !unicode.IsPrint(r) {
			return fmt.Errorf("%s: contains non-printable/control runes", name)
		}
	}
	return nil
}

// isPathy reports whether a field or flag name holds file system or
// Registry locations.
func isPathy(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "path") ||
		strings.Contains(lower, "file") ||
		strings.Contains(lower, "keys")
}

// ---------- document-wide validation ----------

// ValidateStructStrings walks obj, including decoded map[string]any
// documents, and checks every string it finds.
func ValidateStructStrings(obj any, lim Limits) error {
	seen := map[uintptr]bool{}
	return walkValue(reflect.ValueOf(obj), "document", lim, seen)
}

func walkValue(v reflect.Value, path string, lim Limits, seen map[uintptr]bool) error {
	if !v.IsValid() {
		return nil
	}
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return walkValue(v.Elem(), path, lim, seen)

	case reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		ptr := v.Pointer()
		if seen[ptr] {
			return nil
		}
		seen[ptr] = true
		return walkValue(v.Elem(), path, lim, seen)

	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			f := v.Field(i)
			if !f.CanInterface() {
				continue
			}
			if err := walkValue(f, path+"."+t.Field(i).Name, lim, seen); err != nil {
				return err
			}
		}

	case reflect.Map:
		for _, k := range v.MapKeys() {
			if err := walkValue(v.MapIndex(k), path+"["+fmt.Sprint(k.Interface())+"]", lim, seen); err != nil {
				return err
			}
		}

	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := walkValue(v.Index(i), fmt.Sprintf("%s[%d]", path, i), lim, seen); err != nil {
				return err
			}
		}

	case reflect.String:
		if isPathy(path) {
			return ValidatePath(path, v.String(), lim)
		}
		return ValidateString(path, v.String(), lim)
	}
	return nil
}

// ---------- Cobra integration ----------

// AttachRecursive checks the arguments and string flags of root and all of
// its sub commands before they run.
func AttachRecursive(root *cobra.Command, lim Limits) {
	attach(root, lim)
	for _, c := range root.Commands() {
		AttachRecursive(c, lim)
	}
}

func attach(cmd *cobra.Command, lim Limits) {
	prev := cmd.PersistentPreRunE
	cmd.PersistentPreRunE = func(c *cobra.Command, args []string) error {
		if err := validateFlagsAndArgs(c, args, lim); err != nil {
			return err
		}
		if prev != nil {
			return prev(c, args)
		}
		return nil
	}
}

func validateFlagsAndArgs(cmd *cobra.Command, args []string, lim Limits) error {
	for i, a := range args {
		if err := ValidateString(fmt.Sprintf("arg[%d]", i), a, lim); err != nil {
			return err
		}
	}

	var firstErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if firstErr != nil {
			return
		}
		var values []string
		switch f.Value.Type() {
		case "string":
			val, _ := cmd.Flags().GetString(f.Name)
			values = []string{val}
		case "stringSlice":
			values, _ = cmd.Flags().GetStringSlice(f.Name)
		case "stringArray":
			values, _ = cmd.Flags().GetStringArray(f.Name)
		default:
			// other flag types are not checked
			return
		}
		firstErr = validateFlagValues("flag --"+f.Name, values, isPathy(f.Name), lim)
	})
	return firstErr
}

func validateFlagValues(name string, values []string, pathy bool, lim Limits) error {
	for i, v := range values {
		label := name
		if len(values) > 1 {
			label = fmt.Sprintf("%s[%d]", name, i)
		}
		check := ValidateString
		if pathy {
			check = ValidatePath
		}
		if err := check(label, v, lim); err != nil {
			return err
		}
	}
	return nil
}
