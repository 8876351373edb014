package domain

// DonationStatus definition donation status
type DonationStatus string

const (
	// StatusAvailable 可領取
	StatusAvailable DonationStatus = "available"
	// StatusClaimed 已被領取
	StatusClaimed DonationStatus = "claimed"
)

// DonorRef 捐贈者的參照，由後端展開
type DonorRef struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Donation 後端持有正本，client 端是唯讀、可能過期的複本
type Donation struct {
	ID          string         `json:"_id"`
	ItemName    string         `json:"itemName"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Location    string         `json:"location"`
	Status      DonationStatus `json:"status"`
	ImageURL    string         `json:"imageUrl"`
	Donor       DonorRef       `json:"donor"`
}

// DonationInput 建立捐贈的輸入，送出前先做必填檢查
type DonationInput struct {
	ItemName    string
	Description string
	Category    string
	Location    string
}

// MissingField 回傳第一個缺的必填欄位，齊全時為空字串
func (in *DonationInput) MissingField() string {
	switch {
	case in.ItemName == "":
		return "itemName"
	case in.Description == "":
		return "description"
	case in.Category == "":
		return "category"
	case in.Location == "":
		return "location"
	}
	return ""
}
