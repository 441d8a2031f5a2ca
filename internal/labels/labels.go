// Package labels maps analysis metadata keys to their display labels.
package labels

// Dictionary is a typed key -> label mapping with a default-to-key lookup.
type Dictionary map[string]string

// Default holds the labels for the metadata fields the analysis service emits.
var Default = Dictionary{
	"filename":        "اسم الملف",
	"file_size":       "حجم الملف (بايت)",
	"created_date":    "تاريخ الإنشاء",
	"modified_date":   "تاريخ التعديل",
	"duration":        "المدة",
	"resolution":      "الدقة",
	"quality":         "الجودة",
	"bitrate":         "معدل البت",
	"codec_name":      "ترميز الفيديو",
	"codec_long_name": "الترميز الكامل",
	"profile":         "الملف الشخصي للترميز",
	"avg_frame_rate":  "متوسط معدل الإطارات",
	"tags":            "العلامات (Tags)",
}

// Label returns the display label for key, or key itself when unknown.
func (d Dictionary) Label(key string) string {
	if label, ok := d[key]; ok && label != "" {
		return label
	}
	return key
}

// Label looks key up in the Default dictionary.
func Label(key string) string {
	return Default.Label(key)
}
