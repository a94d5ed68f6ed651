package models

// 会话记录字段名（同时是页面元素 id 与会话存储 key 后缀）
const (
	FieldQRScan             = "qrScan"
	FieldPatientID          = "patientId"
	FieldName               = "name"
	FieldAge                = "age"
	FieldGender             = "gender"
	FieldContact            = "contact"
	FieldAddress            = "address"
	FieldMedicalHistory     = "medicalHistory"
	FieldChiefComplaint     = "chiefComplaint"
	FieldPainDescription    = "painDescription"
	FieldAdditionalFeelings = "additionalFeelings"
	FieldEmergencyName      = "emergencyName"
	FieldEmergencyRelation  = "emergencyRelation"
	FieldEmergencyGender    = "emergencyGender"
	FieldEmergencyContact   = "emergencyContact"
	FieldEmergencyAddress   = "emergencyAddress"
	FieldPhoto              = "photo"
)

// RecordFields 固定字段列表（持久化、恢复、提交都按此顺序）
var RecordFields = []string{
	FieldQRScan, FieldPatientID, FieldName, FieldAge, FieldGender, FieldContact, FieldAddress,
	FieldMedicalHistory, FieldChiefComplaint, FieldPainDescription, FieldAdditionalFeelings,
	FieldEmergencyName, FieldEmergencyRelation, FieldEmergencyGender, FieldEmergencyContact,
	FieldEmergencyAddress, FieldPhoto,
}

// IsRecordField 判断字段名是否属于会话记录
func IsRecordField(name string) bool {
	for _, f := range RecordFields {
		if f == name {
			return true
		}
	}
	return false
}

// SessionRecord 一次问诊累积的患者数据
type SessionRecord struct {
	fields map[string]string
	Vitals *CapturedVitals
}

// NewSessionRecord 创建空记录
func NewSessionRecord() *SessionRecord {
	return &SessionRecord{fields: make(map[string]string)}
}

// Get 读取字段，不存在返回空串
func (r *SessionRecord) Get(field string) string {
	if r == nil || r.fields == nil {
		return ""
	}
	return r.fields[field]
}

// Set 写入字段；未知字段忽略并返回 false
func (r *SessionRecord) Set(field, value string) bool {
	if !IsRecordField(field) {
		return false
	}
	if r.fields == nil {
		r.fields = make(map[string]string)
	}
	r.fields[field] = value
	return true
}

// Has 字段是否已有非空值
func (r *SessionRecord) Has(field string) bool {
	return r.Get(field) != ""
}

// Fields 返回全部字段的拷贝（包含空值，按 RecordFields）
func (r *SessionRecord) Fields() map[string]string {
	out := make(map[string]string, len(RecordFields))
	for _, f := range RecordFields {
		out[f] = r.Get(f)
	}
	return out
}

// Clone 深拷贝
func (r *SessionRecord) Clone() *SessionRecord {
	c := NewSessionRecord()
	if r == nil {
		return c
	}
	for k, v := range r.fields {
		c.fields[k] = v
	}
	c.Vitals = r.Vitals.Clone()
	return c
}

// PatientIdentity 扫码核验后返回的患者身份
type PatientIdentity struct {
	PatientID string
	Name      string
	Age       string
	Gender    string
	Contact   string
	Address   string
}

// ApplyIdentity 把身份字段合并进记录（空值不覆盖）
func (r *SessionRecord) ApplyIdentity(id *PatientIdentity) []string {
	if id == nil {
		return nil
	}
	var changed []string
	set := func(field, value string) {
		if value == "" {
			return
		}
		r.Set(field, value)
		changed = append(changed, field)
	}
	set(FieldPatientID, id.PatientID)
	set(FieldName, id.Name)
	set(FieldAge, id.Age)
	set(FieldGender, id.Gender)
	set(FieldContact, id.Contact)
	set(FieldAddress, id.Address)
	return changed
}
