package catalog

const productImage = "https://images.pexels.com/photos/3685523/pexels-photo-3685523.jpeg?auto=compress&cs=tinysrgb&w=400"

var doctors = []Doctor{
	{
		ID:          1,
		Name:        "Dr. Sarah Johnson",
		Specialty:   "Dermatologist",
		Rating:      4.9,
		Experience:  "15 years",
		Price:       150,
		Image:       "https://images.pexels.com/photos/5215024/pexels-photo-5215024.jpeg?auto=compress&cs=tinysrgb&w=400",
		Available:   true,
		ChatStatus:  ChatOnline,
		Greeting:    "Hello! I can help you with your skin concerns. What would you like to discuss today?",
		Specialties: []string{"Acne treatment", "Anti-aging", "Skin cancer"},
	},
	{
		ID:          2,
		Name:        "Dr. Ahmed Hassan",
		Specialty:   "Cosmetic dermatologist",
		Rating:      4.8,
		Experience:  "12 years",
		Price:       200,
		Image:       "https://images.pexels.com/photos/6749235/pexels-photo-6749235.jpeg?auto=compress&cs=tinysrgb&w=400",
		Available:   true,
		ChatStatus:  ChatOnline,
		Greeting:    "Welcome! Tell me what you would like to improve and we will find the right treatment.",
		Specialties: []string{"Botox", "Fillers", "Laser therapy"},
	},
	{
		ID:          3,
		Name:        "Dr. Fatima Al-Rashid",
		Specialty:   "Pediatric dermatologist",
		Rating:      4.9,
		Experience:  "10 years",
		Price:       180,
		Image:       "https://images.pexels.com/photos/5452268/pexels-photo-5452268.jpeg?auto=compress&cs=tinysrgb&w=400",
		Available:   true,
		ChatStatus:  ChatBusy,
		Greeting:    "Hello! How can I help your little one today?",
		Specialties: []string{"Children's skin", "Eczema", "Allergies"},
	},
}

var services = []Service{
	{ID: 1, Name: "General consultation", Duration: "30 minutes", Minutes: 30, Price: 0, Description: "Full skin examination and assessment", Icon: "🩺"},
	{ID: 2, Name: "Acne treatment", Duration: "45 minutes", Minutes: 45, Price: 50, Description: "Specialised treatment for acne and scarring", Icon: "✨"},
	{ID: 3, Name: "Anti-aging consultation", Duration: "60 minutes", Minutes: 60, Price: 100, Description: "Complete plan against the signs of aging", Icon: "🌟"},
	{ID: 4, Name: "AI skin analysis", Duration: "30 minutes", Minutes: 30, Price: 25, Description: "Advanced analysis using modern technology", Icon: "🤖"},
}

var categories = []Category{
	{ID: AllCategory, Name: "All products", Color: "#D4AF37"},
	{ID: "skincare", Name: "Skincare", Color: "#7CB342"},
	{ID: "dental", Name: "Dental care", Color: "#E8B4B8"},
	{ID: "supplements", Name: "Supplements", Color: "#9C27B0"},
	{ID: "tools", Name: "Tools", Color: "#FF7043"},
}

var products = []Product{
	{ID: 1, Name: "Radiant Vitamin C Serum", Price: 89, OriginalPrice: 120, Rating: 4.8, Reviews: 156, Image: productImage, Category: "skincare", IsNew: true, Description: "Powerful antioxidant serum for bright, fresh skin"},
	{ID: 2, Name: "Fluoride Toothpaste", Price: 25, OriginalPrice: 35, Rating: 4.9, Reviews: 203, Image: productImage, Category: "dental", IsNew: false, Description: "Complete protection for teeth and gums"},
	{ID: 3, Name: "Hyaluronic Acid Moisturizer", Price: 65, OriginalPrice: 85, Rating: 4.7, Reviews: 89, Image: productImage, Category: "skincare", IsNew: false, Description: "Deep hydration for every skin type"},
	{ID: 4, Name: "Electric Toothbrush", Price: 150, OriginalPrice: 200, Rating: 4.6, Reviews: 124, Image: productImage, Category: "tools", IsNew: true, Description: "Advanced cleaning with vibration technology"},
	{ID: 5, Name: "Collagen for Skin and Hair", Price: 120, OriginalPrice: 150, Rating: 4.8, Reviews: 167, Image: productImage, Category: "supplements", IsNew: false, Description: "Supplement for healthy skin and hair"},
	{ID: 6, Name: "Antiseptic Mouthwash", Price: 35, OriginalPrice: 45, Rating: 4.9, Reviews: 98, Image: productImage, Category: "dental", IsNew: true, Description: "Protection against bacteria with a fresh scent"},
}

var offerings = []Offering{
	{ID: 1, Title: "Smart photo check", Description: "AI oral health check", Kind: "photo-check", Color: "#9C27B0",
		Features: []string{"Plaque detection", "Gum redness check", "Cavity search", "Personal tips"}, Duration: "5 minutes", Accuracy: "85%"},
	{ID: 2, Title: "Smart urgency check", Description: "Set appointment priority with AI", Kind: "urgency-check", Color: "#E8B4B8",
		Features: []string{"Symptom assessment", "Priority level", "Tailored recommendations", "Care guidance"}, Duration: "3 minutes", Accuracy: "92%"},
	{ID: 3, Title: "Smart booking", Description: "Book with the experts", Kind: "appointment", Color: "#D4AF37",
		Features: []string{"Pick the right doctor", "Flexible scheduling", "Automatic reminders", "Case follow-up"}, Duration: "Instant", Accuracy: "100%"},
	{ID: 4, Title: "Live consultation", Description: "Talk to certified dentists", Kind: "chat", Color: "#4CAF50",
		Features: []string{"Instant consultation", "Certified doctors", "Secure chat", "Professional advice"}, Duration: "24/7", Accuracy: "100%"},
	{ID: 5, Title: "AI skin analysis", Description: "Full skin check with tailored advice", Kind: "skin-ai", Color: "#FF6B6B",
		Features: []string{"Skin type analysis", "Issue detection", "Treatment suggestions", "Custom routine"}, Duration: "3 minutes", Accuracy: "90%"},
	{ID: 6, Title: "Product store", Description: "Carefully selected care products", Kind: "products", Color: "#FF9800",
		Features: []string{"Approved products", "Fast delivery", "Quality guarantee", "Competitive prices"}, Duration: "Instant", Accuracy: "100%"},
}

var timeSlots = []string{
	"9:00 AM", "9:30 AM", "10:00 AM", "10:30 AM",
	"11:00 AM", "11:30 AM", "2:00 PM", "2:30 PM",
	"3:00 PM", "3:30 PM", "4:00 PM", "4:30 PM",
}
