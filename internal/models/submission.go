package models

import "math"

// SubmissionPayload 最终提交请求体（温度以华氏度传输）
type SubmissionPayload struct {
	Photo              *string  `json:"photo"`
	PatientID          string   `json:"patient_id"`
	Name               string   `json:"name"`
	Age                string   `json:"age"`
	Gender             string   `json:"gender"`
	Contact            string   `json:"contact"`
	Address            string   `json:"address"`
	ChiefComplaint     string   `json:"chief_complaint"`
	PainDescription    string   `json:"pain_description"`
	AdditionalSymptoms string   `json:"additional_symptoms"`
	MedicalHistory     string   `json:"medical_history"`
	EmergencyName      string   `json:"emergency_name"`
	EmergencyRelation  string   `json:"emergency_relation"`
	EmergencyGender    string   `json:"emergency_gender"`
	EmergencyContact   string   `json:"emergency_contact"`
	EmergencyAddress   string   `json:"emergency_address"`
	HeartRate          *float64 `json:"heart_rate"`
	SpO2               *float64 `json:"spo2"`
	BodyTempF          *float64 `json:"body_temp_f"`
	EnvTempF           *float64 `json:"env_temp_f"`
	HumidityPercent    *float64 `json:"humidity_percent"`
	WeightKg           *float64 `json:"weight_kg"`
}

// CelsiusToFahrenheit 摄氏转华氏；nil / 非有限值返回 nil
func CelsiusToFahrenheit(c *float64) *float64 {
	if c == nil || math.IsNaN(*c) || math.IsInf(*c, 0) {
		return nil
	}
	f := *c*9/5 + 32
	return &f
}

// BuildSubmission 由会话记录和体征样本组装提交数据
func BuildSubmission(r *SessionRecord, s *SensorSample) *SubmissionPayload {
	p := &SubmissionPayload{
		PatientID:          r.Get(FieldPatientID),
		Name:               r.Get(FieldName),
		Age:                r.Get(FieldAge),
		Gender:             r.Get(FieldGender),
		Contact:            r.Get(FieldContact),
		Address:            r.Get(FieldAddress),
		ChiefComplaint:     r.Get(FieldChiefComplaint),
		PainDescription:    r.Get(FieldPainDescription),
		AdditionalSymptoms: r.Get(FieldAdditionalFeelings),
		MedicalHistory:     r.Get(FieldMedicalHistory),
		EmergencyName:      r.Get(FieldEmergencyName),
		EmergencyRelation:  r.Get(FieldEmergencyRelation),
		EmergencyGender:    r.Get(FieldEmergencyGender),
		EmergencyContact:   r.Get(FieldEmergencyContact),
		EmergencyAddress:   r.Get(FieldEmergencyAddress),
	}
	if photo := r.Get(FieldPhoto); photo != "" {
		p.Photo = &photo
	}
	if s != nil {
		p.HeartRate = copyFloat(s.HeartRate)
		p.SpO2 = copyFloat(s.SpO2)
		p.BodyTempF = CelsiusToFahrenheit(s.Temperature)
		p.EnvTempF = CelsiusToFahrenheit(s.EnvTemperature)
		p.HumidityPercent = copyFloat(s.Humidity)
		p.WeightKg = copyFloat(s.Weight)
	}
	return p
}
