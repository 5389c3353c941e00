package extractors

import "testing"

func TestKeywordClassifier(t *testing.T) {
	tests := []struct {
		name, text, filename, want string
	}{
		{"tiktok by invoice no", "Invoice Number: TTSTH20250008665805", "", "TIKTOK"},
		{"shopee by name", "Shopee (Thailand) Co., Ltd.\nใบกำกับภาษี", "", "SHOPEE"},
		{"shopee by trs code", "Ref TRSPEMKP00-00000-251203-0012589", "", "SHOPEE"},
		{"lazada", "Lazada Ltd. THMPTI25110029731", "", "LAZADA"},
		{"spx beats shopee mention", "SPX Express delivery fee\nShopee Express", "", "SPX"},
		{"meta", "Meta Platforms Ireland Limited\nFacebook ads", "", "META"},
		{"google", "Google Asia Pacific Pte. Ltd. AdWords", "", "GOOGLE"},
		{"thai tax only", "ใบกำกับภาษี / Tax Invoice", "", "THAI_TAX"},
		{"filename signal", "some unlabeled text", "Shopee-TIV-TRS123.pdf", "SHOPEE"},
		{"nothing", "plain receipt", "scan0001.pdf", "UNKNOWN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := (KeywordClassifier{}).Classify(tt.text, tt.filename)
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}
