package wallet

// Wallet tables are read-only, initialized once, and shared across all
// invocations. Seller-id keys are normalized ids: digit strings for Shopee,
// uppercase alphanumerics for Lazada/TikTok.

var rabbitWalletBySellerID = map[string]string{
	"253227155":          "EWL001",
	"235607098":          "EWL002",
	"516516644":          "EWL003",
	"1443909809":         "EWL004",
	"1232116856":         "EWL005",
	"1357179095":         "EWL006",
	"1416156484":         "EWL007",
	"418530715":          "EWL008",
	"349400909":          "EWL009",
	"142025022504068027": "EWL010",
}

var shdWalletBySellerID = map[string]string{
	"628286975":  "EWL001",
	"340395201":  "EWL002",
	"383844799":  "EWL003",
	"261472748":  "EWL004",
	"517180669":  "EWL005",
	"426162640":  "EWL006",
	"231427130":  "EWL007",
	"1646465545": "EWL008",
}

var toponeWalletBySellerID = map[string]string{
	// Shopee (digits)
	"538498056": "EWL001", // Vinko Thailand store
	"503500831": "EWL002", // New Age Pet official store

	// Lazada (alphanumeric)
	"TH1K0CDIML": "EWL003", // Vinko
	"TH1JSB2Z2K": "EWL004", // New Age Pet

	// TikTok (alphanumeric)
	"THLC6LWARA": "EWL005", // NewAgePet
	"THLCTGW4XH": "EWL006", // Vinko Thailand
}

// Keyword tables match against a normalized lowercase shop name (or, as a
// last resort, against the whole document text). Keys mapping to "" are
// deliberate guards: generic terms that must never resolve on their own.

var rabbitWalletByShopKeyword = map[string]string{
	"shopee-70mai":  "EWL001",
	"70mai":         "EWL001",
	"shopee-ddpai":  "EWL002",
	"ddpai":         "EWL002",
	"shopee-jimmy":  "EWL003",
	"jimmy":         "EWL003",
	"shopee-mibro":  "EWL004",
	"mibro":         "EWL004",
	"shopee-mova":   "EWL005",
	"mova":          "EWL005",
	"shopee-toptoy": "EWL006",
	"toptoy":        "EWL006",
	"shopee-uwant":  "EWL007",
	"uwant":         "EWL007",
	"shopee-wanbo":  "EWL008",
	"wanbo":         "EWL008",
	"shopee-zepp":   "EWL009",
	"zepp":          "EWL009",
	"rabbit":        "EWL010",
}

var shdWalletByShopKeyword = map[string]string{
	"shopee-ankerthailandstore":     "EWL001",
	"ankerthailandstore":            "EWL001",
	"anker":                         "EWL001",
	"shopee-dreamofficial":          "EWL002",
	"dreamofficial":                 "EWL002",
	"dreame":                        "EWL002",
	"shopee-levoitofficialstore":    "EWL003",
	"levoitofficialstore":           "EWL003",
	"levoit":                        "EWL003",
	"shopee-soundcoreofficialstore": "EWL004",
	"soundcoreofficialstore":        "EWL004",
	"soundcore":                     "EWL004",
	"xiaomismartappliances":         "EWL005",
	"shopee-xiaomi.thailand":        "EWL006",
	"xiaomi.thailand":               "EWL006",
	"xiaomi_home_appliances":        "EWL007",
	"shopee-nextgadget":             "EWL008",
	"nextgadget":                    "EWL008",
}

var toponeWalletByShopKeyword = map[string]string{
	// Shopee
	"shopee-vinkothailandstore": "EWL001",
	"vinkothailandstore":        "EWL001",
	"vinko":                     "EWL001",
	"newagepetofficialstore":    "EWL002",
	"new age pet":               "EWL002",
	"newagepet":                 "EWL002",

	// Lazada
	"lazada":     "", // guard: never resolve on the platform name
	"th1k0cdiml": "EWL003",
	"th1jsb2z2k": "EWL004",

	// TikTok
	"tiktok":     "", // guard
	"thlc6lwara": "EWL005",
	"thlctgw4xh": "EWL006",
}

func tablesForBucket(bucket string) (byID, byShop map[string]string) {
	switch bucket {
	case "RABBIT":
		return rabbitWalletBySellerID, rabbitWalletByShopKeyword
	case "SHD":
		return shdWalletBySellerID, shdWalletByShopKeyword
	case "TOPONE":
		return toponeWalletBySellerID, toponeWalletByShopKeyword
	}
	return nil, nil
}
