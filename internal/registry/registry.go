package registry

import (
	"errors"
	"strings"
)

// ErrUnknownTable is returned when a requested table is not part of the
// Standard Reference dataset. Callers decide whether to skip or abort.
var ErrUnknownTable = errors.New("unknown table")

// loadOrder lists every table of the dataset, referenced tables first, so
// the loader can insert parents before children and clean can walk it in
// reverse. Column order per table matches the upstream SR field layout and
// must not be reordered.
var loadOrder = []string{
	"FD_GROUP",
	"LANGDESC",
	"SRC_CD",
	"DERIV_CD",
	"DATA_SRC",
	"NUTR_DEF",
	"FOOD_DES",
	"LANGUAL",
	"FOOTNOTE",
	"NUT_DATA",
	"DATSRCLN",
	"WEIGHT",
}

var columns = map[string][]string{
	"FOOD_DES": {
		"NDB_No", "FdGrp_Cd", "Long_Desc", "Shrt_Desc", "ComName",
		"ManufacName", "Survey", "Ref_desc", "Refuse", "SciName",
		"N_Factor", "Pro_Factor", "Fat_Factor", "CHO_Factor",
	},
	"FD_GROUP": {
		"FdGrp_Cd", "FdGrp_Desc",
	},
	"LANGUAL": {
		"NDB_No", "Factor_Code",
	},
	"LANGDESC": {
		"Factor_Code", "Description",
	},
	"NUT_DATA": {
		"NDB_No", "Nutr_No", "Nutr_Val", "Num_Data_Pts", "Std_Error",
		"Src_Cd", "Deriv_Cd", "Ref_NDB_No", "Add_Nutr_Mark", "Num_Studies",
		"Min", "Max", "DF", "Low_EB", "Up_EB", "Stat_cmt", "AddMod_Date", "CC",
	},
	"NUTR_DEF": {
		"Nutr_No", "Units", "Tagname", "NutrDesc", "Num_Dec", "SR_Order",
	},
	"SRC_CD": {
		"Src_Cd", "SrcCd_Desc",
	},
	"DERIV_CD": {
		"Deriv_Cd", "Deriv_Desc",
	},
	"WEIGHT": {
		"NDB_No", "Seq", "Amount", "Msre_Desc", "Gm_Wgt",
		"Num_Data_Pts", "Std_Dev",
	},
	"FOOTNOTE": {
		"NDB_No", "Footnt_No", "Footnt_Typ", "Nutr_No", "Footnt_Txt",
	},
	"DATSRCLN": {
		"NDB_No", "Nutr_No", "DataSrc_ID",
	},
	"DATA_SRC": {
		"DataSrc_ID", "Authors", "Title", "Year", "Journal",
		"Vol_City", "Issue_State", "Start_Page", "End_Page",
	},
}

// Canonical returns the canonical upper-case form of a table name.
// Matching is whole-string, case-insensitive.
func Canonical(name string) (string, error) {
	key := strings.ToUpper(strings.TrimSpace(name))
	if _, ok := columns[key]; !ok {
		return "", ErrUnknownTable
	}
	return key, nil
}

// Columns returns the ordered column list for a table. The returned slice
// is a copy; the registry itself is never mutated at runtime.
func Columns(name string) ([]string, error) {
	key, err := Canonical(name)
	if err != nil {
		return nil, err
	}
	cols := columns[key]
	out := make([]string, len(cols))
	copy(out, cols)
	return out, nil
}

// Tables returns every known table in load order (parents first).
func Tables() []string {
	out := make([]string, len(loadOrder))
	copy(out, loadOrder)
	return out
}
