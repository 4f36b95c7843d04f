package merge

import (
	"inspectsync/internal/inspection"
)

// Field describes how one canonical form field is found on the server.
// Aliases are dotted paths tried in order after the canonical name.
type Field struct {
	Aliases   []string
	Normalize Normalizer
}

// Table is the server mapping of one module
type Table struct {
	// Sections are the keys that may hold the module's object on the server
	Sections []string
	// Completion are root paths of the module's completion flag
	Completion []string
	Fields     map[string]Field
}

// sectionFlags are read inside a module section when no root flag is found
var sectionFlags = []string{"completed", "isCompleted", "is_completed", "status"}

var fuelTypes = Enum(map[string]string{
	"petrol": "Petrol", "gasoline": "Petrol",
	"diesel":   "Diesel",
	"cng":      "CNG",
	"lpg":      "LPG",
	"electric": "Electric", "ev": "Electric",
	"hybrid": "Hybrid",
})

var remarks = Field{Aliases: []string{"comments", "notes", "remark"}, Normalize: Text}

// Tables holds the alias table of every module
var Tables = map[inspection.ModuleKey]Table{
	inspection.ModuleVehicleIdentity: {
		Sections:   []string{"vehicleIdentity", "vehicle", "vehicleDetails", "vehicle_details"},
		Completion: []string{"vehicleIdentityCompleted", "isVehicleIdentityCompleted", "completion.vehicleIdentity"},
		Fields: map[string]Field{
			"make":               {Aliases: []string{"brand", "manufacturer", "carMake"}, Normalize: Text},
			"model":              {Aliases: []string{"carModel", "modelName"}, Normalize: Text},
			"variant":            {Aliases: []string{"carVariant", "variantName", "trim"}, Normalize: Text},
			"manufacturingYear":  {Aliases: []string{"year", "mfgYear", "manufacturing_year", "yearOfManufacture"}, Normalize: Number},
			"fuelType":           {Aliases: []string{"fuel", "fuel_type"}, Normalize: fuelTypes},
			"registrationNumber": {Aliases: []string{"regNo", "registrationNo", "registration_number", "vehicleNumber"}, Normalize: Text},
			"odometer":           {Aliases: []string{"odometerReading", "kmsDriven", "km_driven", "mileage"}, Normalize: Number},
			"colour":             {Aliases: []string{"color", "exteriorColor"}, Normalize: Text},
			"ownerCount":         {Aliases: []string{"owners", "noOfOwners", "owner_serial"}, Normalize: Number},
		},
	},
	inspection.ModuleRCDetails: {
		Sections:   []string{"rcDetails", "rc", "registrationCertificate", "rc_details"},
		Completion: []string{"rcDetailsCompleted", "isRcDetailsCompleted", "completion.rcDetails"},
		Fields: map[string]Field{
			"rcAvailable":       {Aliases: []string{"isRcAvailable", "rc_available", "rcStatus"}, Normalize: YesNo},
			"registrationDate":  {Aliases: []string{"regDate", "registration_date", "dateOfRegistration"}, Normalize: Text},
			"chassisNumber":     {Aliases: []string{"chassisNo", "vin", "chassis_number"}, Normalize: Text},
			"engineNumber":      {Aliases: []string{"engineNo", "engine_number"}, Normalize: Text},
			"hypothecation":     {Aliases: []string{"isHypothecated", "loanStatus", "hypothecationStatus"}, Normalize: YesNo},
			"insuranceValidity": {Aliases: []string{"insuranceExpiry", "insurance_valid_till", "insurance.validity"}, Normalize: Text},
		},
	},
	inspection.ModuleExterior: {
		Sections:   []string{"exterior", "exteriorInspection", "exterior_details", "body"},
		Completion: []string{"exteriorCompleted", "isExteriorCompleted", "completion.exterior"},
		Fields: map[string]Field{
			"bonnet":         {Aliases: []string{"hood"}, Normalize: Text},
			"roof":           {Aliases: []string{"roofPanel"}, Normalize: Text},
			"frontBumper":    {Aliases: []string{"front_bumper", "bumperFront", "bumpers.front"}, Normalize: Text},
			"rearBumper":     {Aliases: []string{"rear_bumper", "bumperRear", "bumpers.rear"}, Normalize: Text},
			"leftFender":     {Aliases: []string{"fenderLeft", "lhsFender", "fenders.left"}, Normalize: Text},
			"rightFender":    {Aliases: []string{"fenderRight", "rhsFender", "fenders.right"}, Normalize: Text},
			"doors":          {Aliases: []string{"doorCondition", "doorsCondition"}, Normalize: Text},
			"exteriorImages": {Aliases: []string{"images", "photos", "exterior_images"}, Normalize: List},
			"remarks":        remarks,
		},
	},
	inspection.ModuleElectricalInterior: {
		Sections:   []string{"electricalInterior", "electrical", "interior", "electrical_interior"},
		Completion: []string{"electricalInteriorCompleted", "isElectricalCompleted", "completion.electricalInterior"},
		Fields: map[string]Field{
			"powerWindows":   {Aliases: []string{"power_windows", "windows"}, Normalize: Text},
			"centralLocking": {Aliases: []string{"central_locking", "centralLock"}, Normalize: Text},
			"dashboard":      {Aliases: []string{"dashboardCondition", "dash"}, Normalize: Text},
			"seats":          {Aliases: []string{"seatCondition", "upholstery"}, Normalize: Text},
			"airbags":        {Aliases: []string{"airbag", "hasAirbags"}, Normalize: YesNo},
			"musicSystem":    {Aliases: []string{"music_system", "infotainment", "audio"}, Normalize: Text},
			"remarks":        remarks,
		},
	},
	inspection.ModuleTestDrive: {
		Sections:   []string{"testDrive", "test_drive", "roadTest"},
		Completion: []string{"testDriveCompleted", "isTestDriveCompleted", "completion.testDrive"},
		Fields: map[string]Field{
			"testDriveStatus":   {Aliases: []string{"status", "isTestDriveDone", "test_drive_status", "testDriveDone"}, Normalize: TestDriveStatus},
			"drivingExperience": {Aliases: []string{"experience", "driving_experience"}, Normalize: Text},
			"problems":          {Aliases: []string{"issues", "problemsFound"}, Normalize: List},
			"steering":          {Aliases: []string{"steeringCondition"}, Normalize: Text},
			"brakes":            {Aliases: []string{"brake", "brakeCondition"}, Normalize: Text},
			"clutch":            {Aliases: []string{"clutchCondition"}, Normalize: Text},
			"gearShifting":      {Aliases: []string{"gearShift", "gear_shifting", "transmission"}, Normalize: Text},
			"suspension":        {Aliases: []string{"suspensionCondition"}, Normalize: Text},
			"incompleteReason":  {Aliases: []string{"reason", "notDoneReason", "incomplete_reason"}, Normalize: Text},
			"remarks":           remarks,
		},
	},
	inspection.ModuleEngine: {
		Sections:   []string{"engine", "engineInspection", "engine_details"},
		Completion: []string{"engineCompleted", "isEngineCompleted", "completion.engine"},
		Fields: map[string]Field{
			"engineSound": {Aliases: []string{"sound", "engine_sound"}, Normalize: Text},
			"smoke":       {Aliases: []string{"exhaustSmoke", "smokeColor"}, Normalize: Text},
			"oilLeakage":  {Aliases: []string{"oilLeak", "oil_leakage"}, Normalize: YesNo},
			"coolant":     {Aliases: []string{"coolantLevel"}, Normalize: Text},
			"battery":     {Aliases: []string{"batteryCondition"}, Normalize: Text},
			"engineVideo": {Aliases: []string{"video", "engine_video", "videoUrl"}, Normalize: Text},
			"remarks":     remarks,
		},
	},
	inspection.ModuleFunctions: {
		Sections:   []string{"functions", "functionalChecks", "functional_checks"},
		Completion: []string{"functionsCompleted", "isFunctionsCompleted", "completion.functions"},
		Fields: map[string]Field{
			"airConditioning": {Aliases: []string{"ac", "airCon"}, Normalize: Text},
			"horn":            {Aliases: []string{"hornWorking"}, Normalize: YesNo},
			"wipers":          {Aliases: []string{"wiper"}, Normalize: Text},
			"headlamps":       {Aliases: []string{"headlights", "headLamp"}, Normalize: Text},
			"remarks":         remarks,
		},
	},
	inspection.ModuleFrames: {
		Sections:   []string{"frames", "frame", "chassisFrame"},
		Completion: []string{"framesCompleted", "isFramesCompleted", "completion.frames"},
		Fields: map[string]Field{
			"pillars": {Aliases: []string{"pillar", "pillarCondition"}, Normalize: Text},
			"floor":   {Aliases: []string{"floorPan"}, Normalize: Text},
			"apron":   {Aliases: []string{"apronCondition", "aprons"}, Normalize: Text},
			"remarks": remarks,
		},
	},
	inspection.ModuleRefurbishmentCost: {
		Sections:   []string{"refurbishmentCost", "refurbishment", "refurb", "refurbishment_cost"},
		Completion: []string{"refurbishmentCompleted", "isRefurbishmentCompleted", "completion.refurbishmentCost"},
		Fields: map[string]Field{
			"bodyWork":   {Aliases: []string{"body", "body_work", "bodyCost"}, Normalize: Number},
			"mechanical": {Aliases: []string{"mechanicalCost"}, Normalize: Number},
			"electrical": {Aliases: []string{"electricalCost"}, Normalize: Number},
			"tyres":      {Aliases: []string{"tires", "tyre", "tyreCost"}, Normalize: Number},
			"interior":   {Aliases: []string{"interiorCost"}, Normalize: Number},
		},
	},
	inspection.ModuleDefects: {
		Sections:   []string{"defects", "defectList", "defect"},
		Completion: []string{"defectsCompleted", "isDefectsCompleted", "completion.defects"},
		Fields: map[string]Field{
			"defects":   {Aliases: []string{"items", "list", "defectItems"}, Normalize: List},
			"noDefects": {Aliases: []string{"no_defects", "isDefectFree", "defectFree"}, Normalize: Bool},
		},
	},
}
